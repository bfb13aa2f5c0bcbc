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

// TicketService coordinates ticket creation, lifecycle updates and reads.
type TicketService struct {
	tickets   repository.TicketRepository
	sequence  *SequenceGenerator
	roster    roster.Directory
	notifier  *NotificationService
	publisher publisher
	clock     Clock
	logger    *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Sequence   *SequenceGenerator
	Roster     roster.Directory
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Category       domain.TicketCategory
	Module         *string
	SubCategory    *string
	TypeOfIssue    *string
	Subject        string
	Description    string
	Priority       domain.TicketPriority
	RequesterEmail string
	RequesterName  string
	Attachments    []domain.Attachment
}

// TicketUpdateInput lists lifecycle fields to change. Nil means unchanged.
type TicketUpdateInput struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Category      *domain.TicketCategory
	AssigneeEmail *string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Categories     []domain.TicketCategory
	AssigneeEmail  *string
	RequesterEmail *string
	Limit          int
	Offset         int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:   deps.TicketRepo,
		sequence:  deps.Sequence,
		roster:    deps.Roster,
		notifier:  deps.Notifier,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
		clock:     deps.Clock,
		logger:    logger,
	}
}

// CreateTicket raises a ticket for the requester. The number is drawn before
// anything is written, so a sequence failure leaves no record behind.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	category := input.Category
	if category == "" {
		category = domain.CategoryIncident
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityLow
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	requesterEmail := strings.TrimSpace(input.RequesterEmail)
	customer := strings.TrimSpace(input.RequesterName)
	// Only staff may file on behalf of someone else.
	if actor.Role == domain.RoleClient {
		requesterEmail, customer = "", ""
	}
	if requesterEmail == "" {
		requesterEmail = actor.Email
	}
	if requesterEmail == "" {
		return nil, apperrors.NewValidationError("requester email is required", map[string]any{"field": "email"})
	}
	if customer == "" {
		customer = actor.DisplayName()
	}

	number, err := s.sequence.NextTicketNumber(ctx, category)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	ticket := &domain.Ticket{
		TicketNumber: number,
		Category:     category,
		Module:       trimmedPtr(input.Module),
		SubCategory:  trimmedPtr(input.SubCategory),
		TypeOfIssue:  trimmedPtr(input.TypeOfIssue),
		Subject:      subject,
		Description:  domain.SanitizeMessage(input.Description),
		Priority:     priority,
		Status:       domain.TicketStatusOpen,
		Email:        requesterEmail,
		Customer:     customer,
		Created:      now,
		LastUpdated:  now,
		Attachments:  input.Attachments,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("requester", ticket.Email))
	s.publisher.publish(ctx, events.EventTicketCreated, actor, ticket, map[string]any{
		"category": ticket.Category,
		"priority": ticket.Priority,
	})
	return ticket, nil
}

// UpdateTicket applies a lifecycle change. All changed fields and the single
// audit comment describing them are written together.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*MutationResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	if !canAccess(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	// Requesters may only reprioritise; status, category and assignee belong to responders.
	if !actor.Role.IsResponder() && (input.Status != nil || input.Category != nil || input.AssigneeEmail != nil) {
		return nil, apperrors.NewForbidden("only responders may change status, category or assignee")
	}

	patch := repository.TicketPatch{}
	var parts []string
	changes := map[string]any{}

	if input.Status != nil && *input.Status != ticket.Status {
		target := *input.Status
		if !target.IsValid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": target})
		}
		if target.RequiresResolution() && !ticket.HasResolution() {
			return nil, apperrors.NewMissingResolutionError()
		}
		patch.Status = &target
		parts = append(parts, fmt.Sprintf("Status changed from %s to %s.", ticket.Status, target))
		changes["status"] = target
	}

	if input.Priority != nil && *input.Priority != ticket.Priority {
		target := *input.Priority
		if !target.IsValid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": target})
		}
		patch.Priority = &target
		parts = append(parts, fmt.Sprintf("Priority changed from %s to %s.", ticket.Priority, target))
		changes["priority"] = target
	}

	var assignee *domain.Assignee
	if input.AssigneeEmail != nil {
		email := strings.TrimSpace(*input.AssigneeEmail)
		if email != "" && !strings.EqualFold(email, ticket.AssigneeEmail()) {
			resolved, err := resolveResponder(ctx, s.roster, actor, email)
			if err != nil {
				return nil, err
			}
			assignee = &resolved
		}
	}

	// Drawn last: a rejected update must not consume a number.
	if input.Category != nil && *input.Category != ticket.Category {
		target := *input.Category
		number, err := s.sequence.NextTicketNumber(ctx, target)
		if err != nil {
			return nil, err
		}
		patch.Category = &target
		patch.TicketNumber = &number
		parts = append(parts, fmt.Sprintf("Category changed from %s to %s (ticket number %s → %s).",
			ticket.Category, target, ticket.TicketNumber, number))
		changes["category"] = target
		changes["ticketNumber"] = number
	}

	if assignee != nil {
		assignedBy := actor.DisplayName()
		patch.Assignee = assignee
		patch.AssignedBy = &assignedBy
		parts = append(parts, fmt.Sprintf("Assigned to %s.", assignee.Name))
		changes["assignee"] = assignee.Email
	}

	if len(parts) == 0 {
		return &MutationResult{Ticket: ticket}, nil
	}

	eventType := domain.CommentEventStatusChange
	if assignee != nil {
		eventType = domain.CommentEventAssignment
	}
	now := s.clock.now()
	message := strings.Join(parts, " ")
	patch.AppendComment = &domain.Comment{
		Message:     message,
		Timestamp:   now,
		AuthorEmail: actor.Email,
		AuthorName:  actor.DisplayName(),
		AuthorRole:  domain.AuthorRoleUser,
		EventType:   eventType,
	}
	patch.LastUpdated = now

	updated, err := s.tickets.Patch(ctx, ticketID, patch)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}

	result := &MutationResult{Ticket: updated}
	switch {
	case assignee != nil && len(parts) == 1:
		result.warn(s.notifier.Notify(ctx, notification.KindAssignment, updated, requesterOnly(updated), message, actor))
	case patch.Status != nil && patch.Status.RequiresResolution():
		result.warn(s.notifier.Notify(ctx, notification.KindResolution, updated, updated.Recipients(), message, actor))
	default:
		result.warn(s.notifier.Notify(ctx, notification.KindComment, updated, updated.Recipients(), message, actor))
	}

	s.publisher.publish(ctx, events.EventTicketUpdated, actor, updated, changes)
	return result, nil
}

// UpdateResolution records resolution text and attachments on a ticket.
func (s *TicketService) UpdateResolution(ctx context.Context, actor domain.Actor, ticketID, text string, attachments []domain.Attachment) (*MutationResult, error) {
	if !actor.Role.IsResponder() {
		return nil, apperrors.NewForbidden("only responders may resolve tickets")
	}
	resolution := domain.SanitizeMessage(text)
	if strings.TrimSpace(resolution) == "" {
		return nil, apperrors.NewValidationError("resolution is required", map[string]any{"field": "resolution"})
	}

	now := s.clock.now()
	message := "Resolution updated: " + resolution
	patch := repository.TicketPatch{
		Resolution: &resolution,
		AppendComment: &domain.Comment{
			Message:     message,
			Timestamp:   now,
			AuthorEmail: actor.Email,
			AuthorName:  actor.DisplayName(),
			AuthorRole:  domain.AuthorRoleResolver,
			EventType:   domain.CommentEventResolution,
		},
		LastUpdated: now,
	}
	if attachments != nil {
		patch.ResolutionAttachments = &attachments
	}

	updated, err := s.tickets.Patch(ctx, ticketID, patch)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}

	result := &MutationResult{Ticket: updated}
	result.warn(s.notifier.Notify(ctx, notification.KindResolution, updated, updated.Recipients(), message, actor))
	s.publisher.publish(ctx, events.EventResolutionUpdated, actor, updated, nil)
	return result, nil
}

// DeleteTicket removes a ticket by id.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins may delete tickets")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapRepoError(err, ticketID)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("actor", actor.Email))
	s.publisher.publish(ctx, events.EventTicketDeleted, actor, &domain.Ticket{ID: ticketID}, nil)
	return nil
}

// GetTicket returns a ticket with its display-ordered trail. Legacy trails
// are synthesized but not written back.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.TrailEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, mapRepoError(err, ticketID)
	}
	if !canAccess(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	return ticket, domain.NormalizeTrail(ticket), nil
}

// ListTickets returns tickets visible to the actor. Clients only see their own.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		Categories:     filter.Categories,
		AssigneeEmail:  filter.AssigneeEmail,
		RequesterEmail: filter.RequesterEmail,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if actor.Role == domain.RoleClient {
		email := actor.Email
		repoFilter.RequesterEmail = &email
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns every ticket matching filter without actor scoping. Used by
// the KPI read side.
func (s *TicketService) ListAll(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func canAccess(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role != domain.RoleClient {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(actor.Email), strings.TrimSpace(ticket.Email))
}

func requesterOnly(ticket *domain.Ticket) []string {
	if email := strings.TrimSpace(ticket.Email); email != "" {
		return []string{email}
	}
	return nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
