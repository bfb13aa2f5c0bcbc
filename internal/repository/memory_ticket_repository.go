package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
)

type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketRepository returns a process-local ticket store used by
// tests and single-node development runs.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (r *memoryTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if filter.matches(ticket) {
			result = append(result, *cloneTicket(ticket))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastUpdated.After(result[j].LastUpdated.Time)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *memoryTicketRepository) Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneTicket(current)
	if err := patch.Apply(next); err != nil {
		return nil, err
	}
	r.tickets[id] = next
	return cloneTicket(next), nil
}

func (r *memoryTicketRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (f TicketFilter) matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, t.Category) {
		return false
	}
	if f.AssigneeEmail != nil && !strings.EqualFold(t.AssigneeEmail(), *f.AssigneeEmail) {
		return false
	}
	if f.RequesterEmail != nil && !strings.EqualFold(t.Email, *f.RequesterEmail) {
		return false
	}
	if f.CreatedFrom != nil && t.Created.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.Created.After(*f.CreatedTo) {
		return false
	}
	return true
}

func paginate(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if offset > 0 {
		if offset >= len(tickets) {
			return []domain.Ticket{}
		}
		tickets = tickets[offset:]
	}
	if limit > 0 && limit < len(tickets) {
		tickets = tickets[:limit]
	}
	return tickets
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.Module = clonePtr(t.Module)
	c.SubCategory = clonePtr(t.SubCategory)
	c.TypeOfIssue = clonePtr(t.TypeOfIssue)
	c.AssignedTo = clonePtr(t.AssignedTo)
	c.AssignedBy = clonePtr(t.AssignedBy)
	c.ResolutionAttachments = slices.Clone(t.ResolutionAttachments)
	c.Attachments = slices.Clone(t.Attachments)
	c.AdminResponses = slices.Clone(t.AdminResponses)
	c.CustomerResponses = slices.Clone(t.CustomerResponses)
	if t.Comments != nil {
		c.Comments = make([]domain.Comment, len(t.Comments))
		for i, comment := range t.Comments {
			comment.Attachments = slices.Clone(comment.Attachments)
			comment.LastEditedAt = clonePtr(comment.LastEditedAt)
			c.Comments[i] = comment
		}
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
