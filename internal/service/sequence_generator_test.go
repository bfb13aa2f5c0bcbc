package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// flakyCounters fails its first failures increments with err, then delegates.
type flakyCounters struct {
	next     repository.CounterRepository
	failures int32
	err      error
	calls    atomic.Int32
}

func (c *flakyCounters) Increment(ctx context.Context, counterID string, startValue int64) (int64, error) {
	if c.calls.Add(1) <= c.failures {
		return 0, c.err
	}
	return c.next.Increment(ctx, counterID, startValue)
}

func TestNextTicketNumberPrefixes(t *testing.T) {
	gen := NewSequenceGenerator(SequenceDependencies{CounterRepo: repository.NewMemoryCounterRepository()})
	ctx := context.Background()

	tests := []struct {
		category domain.TicketCategory
		want     string
	}{
		{domain.CategoryIncident, "IN100000"},
		{domain.CategoryServiceRequest, "SR200000"},
		{domain.CategoryChangeRequest, "CR300000"},
		{domain.CategoryIncident, "IN100001"},
		{"Hardware", "IN100002"},
	}
	for _, tt := range tests {
		got, err := gen.NextTicketNumber(ctx, tt.category)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNextTicketNumberConcurrentCallersGetDistinctNumbers(t *testing.T) {
	gen := NewSequenceGenerator(SequenceDependencies{CounterRepo: repository.NewMemoryCounterRepository()})
	const callers = 64

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := gen.NextTicketNumber(context.Background(), domain.CategoryChangeRequest)
			assert.NoError(t, err)
			mu.Lock()
			numbers[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, callers)
	for v := int64(300000); v < 300000+callers; v++ {
		assert.Contains(t, numbers, FormatTicketNumber("CR", v))
	}
}

func TestNextTicketNumberRetriesConflicts(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	counters := &flakyCounters{next: repository.NewMemoryCounterRepository(), failures: 2, err: repository.ErrCounterConflict}
	gen := NewSequenceGenerator(SequenceDependencies{
		CounterRepo:  counters,
		MaxRetries:   5,
		RetryBackoff: time.Millisecond,
		Metrics:      metrics,
	})

	got, err := gen.NextTicketNumber(context.Background(), domain.CategoryIncident)

	require.NoError(t, err)
	assert.Equal(t, "IN100000", got)
	assert.EqualValues(t, 3, counters.calls.Load())
	expected := `
# HELP servicedesk_sequence_retries_total Ticket number attempts that conflicted and were retried
# TYPE servicedesk_sequence_retries_total counter
servicedesk_sequence_retries_total{counter="incident"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "servicedesk_sequence_retries_total"))
}

func TestNextTicketNumberFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{name: "retries exhausted", err: repository.ErrCounterConflict, wantCalls: 3},
		{name: "non retryable", err: errors.New("connection refused"), wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counters := &flakyCounters{next: repository.NewMemoryCounterRepository(), failures: 100, err: tt.err}
			gen := NewSequenceGenerator(SequenceDependencies{CounterRepo: counters, MaxRetries: 3, RetryBackoff: time.Millisecond})

			_, err := gen.NextTicketNumber(context.Background(), domain.CategoryIncident)

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeSequenceGeneration))
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, counters.calls.Load())
		})
	}
}

func TestNextTicketNumberHonoursCancellation(t *testing.T) {
	counters := &flakyCounters{next: repository.NewMemoryCounterRepository(), failures: 100, err: repository.ErrCounterConflict}
	gen := NewSequenceGenerator(SequenceDependencies{CounterRepo: counters, MaxRetries: 5, RetryBackoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gen.NextTicketNumber(ctx, domain.CategoryIncident)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, counters.calls.Load())
}
