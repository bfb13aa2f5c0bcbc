package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/observability"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// NotificationService builds notification payloads for committed mutations
// and hands them to the configured sender.
type NotificationService struct {
	sender     notification.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Sender     notification.Sender
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		timeout:    deps.Timeout,
	}
}

// RegisterHandlers subscribes an audit logger to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAny, n.handleTicketEvent)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_number", event.TicketNumber),
		zap.String("actor", event.Actor.Email))
	return nil
}

// Notify dispatches one notification. The mutation it reports on is already
// committed, so failures come back as a warning rather than an error.
func (n *NotificationService) Notify(ctx context.Context, kind notification.Kind, ticket *domain.Ticket, recipients []string, message string, actor domain.Actor) *apperrors.DomainError {
	if n == nil || n.sender == nil || len(recipients) == 0 {
		return nil
	}
	payload := notification.Notification{
		Kind:         kind,
		Recipients:   recipients,
		Subject:      notificationSubject(kind, ticket),
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Message:      message,
		Actor:        actor.DisplayName(),
	}

	sendCtx := context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, n.timeout)
		defer cancel()
	}

	if err := n.sender.Send(sendCtx, payload); err != nil {
		n.metrics.RecordNotificationFailure(string(kind))
		n.logger.Warn("notification dispatch failed",
			zap.String("kind", string(kind)),
			zap.String("ticket_number", ticket.TicketNumber),
			zap.Strings("recipients", recipients),
			zap.Error(err))
		return apperrors.NewNotificationDispatchError(string(kind), recipients, err)
	}
	return nil
}

func notificationSubject(kind notification.Kind, ticket *domain.Ticket) string {
	switch kind {
	case notification.KindAssignment:
		name := ""
		if ticket.AssignedTo != nil {
			name = ticket.AssignedTo.Name
		}
		return fmt.Sprintf("Ticket %s has been assigned to %s", ticket.TicketNumber, name)
	case notification.KindResolution:
		return fmt.Sprintf("Ticket %s is %s", ticket.TicketNumber, ticket.Status)
	default:
		return fmt.Sprintf("New update on ticket %s", ticket.TicketNumber)
	}
}
