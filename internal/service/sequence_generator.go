package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// SequenceGenerator mints category-prefixed ticket numbers.
type SequenceGenerator struct {
	counters   repository.CounterRepository
	maxRetries int
	backoff    time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// SequenceDependencies bundles generator collaborators.
type SequenceDependencies struct {
	CounterRepo  repository.CounterRepository
	MaxRetries   int
	RetryBackoff time.Duration
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewSequenceGenerator constructs the generator.
func NewSequenceGenerator(deps SequenceDependencies) *SequenceGenerator {
	retries := deps.MaxRetries
	if retries < 1 {
		retries = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceGenerator{
		counters:   deps.CounterRepo,
		maxRetries: retries,
		backoff:    deps.RetryBackoff,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// NextTicketNumber draws the next number for category. Conflicting increments
// are retried with linear backoff; any other failure, or running out of
// attempts, yields a SEQUENCE_GENERATION_FAILED error.
func (g *SequenceGenerator) NextTicketNumber(ctx context.Context, category domain.TicketCategory) (string, error) {
	numbering := category.Numbering()

	var lastErr error
	attempt := 0
	for attempt < g.maxRetries {
		attempt++
		value, err := g.counters.Increment(ctx, numbering.CounterID, numbering.StartValue)
		if err == nil {
			return FormatTicketNumber(numbering.Prefix, value), nil
		}
		lastErr = err
		if !errors.Is(err, repository.ErrCounterConflict) {
			break
		}
		g.metrics.RecordSequenceRetry(numbering.CounterID)
		g.logger.Debug("ticket number conflict, retrying",
			zap.String("counter", numbering.CounterID),
			zap.Int("attempt", attempt))
		if attempt < g.maxRetries {
			if err := sleepContext(ctx, g.backoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	g.metrics.RecordSequenceFailure(numbering.CounterID)
	g.logger.Error("ticket number generation failed",
		zap.String("counter", numbering.CounterID),
		zap.Int("attempts", attempt),
		zap.Error(lastErr))
	return "", apperrors.NewSequenceGenerationError(numbering.CounterID, attempt, lastErr)
}

// FormatTicketNumber joins a prefix and counter value.
func FormatTicketNumber(prefix string, value int64) string {
	return prefix + strconv.FormatInt(value, 10)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
