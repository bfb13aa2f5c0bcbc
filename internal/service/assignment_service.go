package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/roster"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets   repository.TicketRepository
	roster    roster.Directory
	notifier  *NotificationService
	publisher publisher
	clock     Clock
	logger    *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	Roster     roster.Directory
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:   deps.TicketRepo,
		roster:    deps.Roster,
		notifier:  deps.Notifier,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
		clock:     deps.Clock,
		logger:    logger,
	}
}

// Assign hands the ticket to a responder. Re-assigning to the current
// assignee is not suppressed and records another audit entry.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID, responderEmail string) (*MutationResult, error) {
	if !actor.Role.IsResponder() {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}
	email := strings.TrimSpace(responderEmail)
	if email == "" {
		return nil, apperrors.NewValidationError("responder email is required", map[string]any{"field": "email"})
	}
	responder, err := resolveResponder(ctx, s.roster, actor, email)
	if err != nil {
		return nil, err
	}

	assigner := actor.DisplayName()
	now := s.clock.now()
	message := fmt.Sprintf("Ticket assigned to %s by %s.", responder.Name, assigner)
	updated, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{
		Assignee:   &responder,
		AssignedBy: &assigner,
		AppendComment: &domain.Comment{
			Message:     message,
			Timestamp:   now,
			AuthorEmail: actor.Email,
			AuthorName:  assigner,
			AuthorRole:  domain.AuthorRoleSystem,
			EventType:   domain.CommentEventAssignment,
		},
		LastUpdated: now,
	})
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", updated.ID),
		zap.String("assignee", responder.Email),
		zap.String("assigned_by", actor.Email))

	result := &MutationResult{Ticket: updated}
	result.warn(s.notifier.Notify(ctx, notification.KindAssignment, updated, requesterOnly(updated), message, actor))
	s.publisher.publish(ctx, events.EventTicketAssigned, actor, updated, map[string]any{
		"assignee": responder.Email,
	})
	return result, nil
}

// Unassign clears the assignee. No audit comment and no notification.
func (s *AssignmentService) Unassign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if !actor.Role.IsResponder() {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}
	updated, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{
		ClearAssignee: true,
		LastUpdated:   s.clock.now(),
	})
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	s.publisher.publish(ctx, events.EventTicketUnassigned, actor, updated, nil)
	return updated, nil
}

// resolveResponder looks email up in the roster. An actor assigning to
// themselves is accepted even when the roster does not list them.
func resolveResponder(ctx context.Context, directory roster.Directory, actor domain.Actor, email string) (domain.Assignee, error) {
	if directory != nil {
		responder, ok, err := directory.Lookup(ctx, email)
		if err != nil {
			return domain.Assignee{}, apperrors.MapError(err)
		}
		if ok {
			if strings.TrimSpace(responder.Name) == "" {
				responder.Name = responder.Email
			}
			return responder, nil
		}
	}
	if strings.EqualFold(email, strings.TrimSpace(actor.Email)) {
		return actor.AsAssignee(), nil
	}
	return domain.Assignee{}, apperrors.NewNotFound("responder", map[string]any{"email": email})
}
