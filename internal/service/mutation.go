package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// MutationResult is a committed ticket plus non-fatal warnings raised after
// the commit, such as failed notifications.
type MutationResult struct {
	Ticket   *domain.Ticket
	Warnings []*apperrors.DomainError
}

func (r *MutationResult) warn(w *apperrors.DomainError) {
	if w != nil {
		r.Warnings = append(r.Warnings, w)
	}
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() domain.Timestamp {
	if c == nil {
		return domain.NewTimestamp(systemClock())
	}
	return domain.NewTimestamp(c())
}

// mapRepoError turns repository sentinels into domain errors.
func mapRepoError(err error, ticketID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	case errors.Is(err, repository.ErrCommentIndex):
		return apperrors.NewValidationError("comment index out of range", map[string]any{"ticket_id": ticketID})
	default:
		return apperrors.MapError(err)
	}
}

type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, eventType events.EventType, actor domain.Actor, ticket *domain.Ticket, payload map[string]any) {
	if p.dispatcher == nil || ticket == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        events.ActorFrom(actor),
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
