package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// CommentService manages a ticket's audit trail.
type CommentService struct {
	tickets   repository.TicketRepository
	notifier  *NotificationService
	publisher publisher
	clock     Clock
	logger    *zap.Logger
}

// CommentDependencies bundles collaborators.
type CommentDependencies struct {
	TicketRepo repository.TicketRepository
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// CommentInput is a manual comment.
type CommentInput struct {
	Message     string
	Attachments []domain.Attachment
}

// NewCommentService creates the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		tickets:   deps.TicketRepo,
		notifier:  deps.Notifier,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
		clock:     deps.Clock,
		logger:    logger,
	}
}

// AppendComment pushes a manual comment onto the trail.
func (s *CommentService) AppendComment(ctx context.Context, actor domain.Actor, ticketID string, input CommentInput) (*MutationResult, error) {
	message := domain.SanitizeMessage(input.Message)
	if strings.TrimSpace(message) == "" && len(input.Attachments) == 0 {
		return nil, apperrors.NewValidationError("comment is empty", map[string]any{"field": "message"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	if !canAccess(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	now := s.clock.now()
	updated, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{
		AppendComment: &domain.Comment{
			Message:     message,
			Timestamp:   now,
			AuthorEmail: actor.Email,
			AuthorName:  actor.DisplayName(),
			AuthorRole:  domain.AuthorRoleUser,
			EventType:   domain.CommentEventManual,
			Attachments: input.Attachments,
		},
		LastUpdated: now,
	})
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}

	result := &MutationResult{Ticket: updated}
	result.warn(s.notifier.Notify(ctx, notification.KindComment, updated, updated.Recipients(), message, actor))
	s.publisher.publish(ctx, events.EventCommentAdded, actor, updated, nil)
	return result, nil
}

// EditComment rewrites the message stored at index. Authorship and the
// original timestamp are kept; edit provenance is stamped on the entry.
func (s *CommentService) EditComment(ctx context.Context, actor domain.Actor, ticketID string, index int, message string) (*domain.Ticket, error) {
	sanitized := domain.SanitizeMessage(message)
	if strings.TrimSpace(sanitized) == "" {
		return nil, apperrors.NewValidationError("comment is empty", map[string]any{"field": "message"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	if ticket.HasLegacyTrail() {
		return nil, apperrors.NewConflict("legacy responses must be migrated before editing", map[string]any{"ticket_id": ticketID})
	}
	if index < 0 || index >= len(ticket.Comments) {
		return nil, apperrors.NewValidationError("comment index out of range", map[string]any{"index": index, "count": len(ticket.Comments)})
	}

	edited := ticket.Comments[index]
	if actor.Role != domain.RoleAdmin && !strings.EqualFold(edited.AuthorEmail, actor.Email) {
		return nil, apperrors.NewForbidden("only the author may edit this comment")
	}

	now := s.clock.now()
	edited.Message = sanitized
	edited.LastEditedAt = now.Ptr()
	edited.LastEditedBy = actor.DisplayName()

	updated, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{
		EditComment: &repository.CommentEdit{Index: index, Comment: edited},
		LastUpdated: now,
	})
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	s.publisher.publish(ctx, events.EventCommentEdited, actor, updated, map[string]any{"index": index})
	return updated, nil
}

// MigrateLegacyComments persists the synthesized trail of a legacy ticket into
// comments and drops the old response lists. It reports whether anything was
// migrated. lastUpdated is left as it was.
func (s *CommentService) MigrateLegacyComments(ctx context.Context, actor domain.Actor, ticketID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, mapRepoError(err, ticketID)
	}
	if !ticket.HasLegacyTrail() {
		return false, nil
	}

	comments := ticket.LegacyComments()
	updated, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{
		Comments:             &comments,
		ClearLegacyResponses: true,
		LastUpdated:          ticket.LastUpdated,
	})
	if err != nil {
		return false, mapRepoError(err, ticketID)
	}
	s.logger.Info("legacy comments migrated",
		zap.String("ticket_id", ticketID),
		zap.Int("comments", len(comments)))
	s.publisher.publish(ctx, events.EventCommentsMigrated, actor, updated, map[string]any{"comments": len(comments)})
	return true, nil
}

// MigrateAllLegacyComments migrates every ticket that still has a legacy trail.
func (s *CommentService) MigrateAllLegacyComments(ctx context.Context, actor domain.Actor) (int, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	migrated := 0
	for i := range tickets {
		if !tickets[i].HasLegacyTrail() {
			continue
		}
		ok, err := s.MigrateLegacyComments(ctx, actor, tickets[i].ID)
		if err != nil {
			return migrated, err
		}
		if ok {
			migrated++
		}
	}
	return migrated, nil
}
