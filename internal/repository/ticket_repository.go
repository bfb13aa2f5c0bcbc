package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

var (
	// ErrNotFound is returned when a ticket does not exist, including one
	// deleted between a read and a follow-up write.
	ErrNotFound = errors.New("ticket not found")
	// ErrCommentIndex is returned when an edit targets a missing comment.
	ErrCommentIndex = errors.New("comment index out of range")
)

// TicketFilter captures list parameters. Zero values mean "any".
type TicketFilter struct {
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Categories     []domain.TicketCategory
	AssigneeEmail  *string
	RequesterEmail *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// CommentEdit replaces the comment stored at Index.
type CommentEdit struct {
	Index   int
	Comment domain.Comment
}

// TicketPatch is a partial update applied to one ticket document in a single
// write. Nil fields are left untouched.
type TicketPatch struct {
	Status                *domain.TicketStatus
	Priority              *domain.TicketPriority
	Category              *domain.TicketCategory
	TicketNumber          *string
	Resolution            *string
	ResolutionAttachments *[]domain.Attachment
	Assignee              *domain.Assignee
	AssignedBy            *string
	ClearAssignee         bool
	Comments              *[]domain.Comment
	ClearLegacyResponses  bool
	AppendComment         *domain.Comment
	EditComment           *CommentEdit
	LastUpdated           domain.Timestamp
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Patch(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

// fields returns the top-level document fields the patch overwrites, keyed by
// their stored names.
func (p TicketPatch) fields() map[string]any {
	set := map[string]any{"lastUpdated": p.LastUpdated}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.TicketNumber != nil {
		set["ticketNumber"] = *p.TicketNumber
	}
	if p.Resolution != nil {
		set["resolution"] = *p.Resolution
	}
	if p.ResolutionAttachments != nil {
		set["resolutionAttachments"] = *p.ResolutionAttachments
	}
	if p.ClearAssignee {
		set["assignedTo"] = nil
		set["assignedBy"] = nil
	} else {
		if p.Assignee != nil {
			set["assignedTo"] = *p.Assignee
		}
		if p.AssignedBy != nil {
			set["assignedBy"] = *p.AssignedBy
		}
	}
	if p.Comments != nil {
		set["comments"] = *p.Comments
	}
	return set
}

// editPath is the dotted path of the edited comment.
func (e CommentEdit) editPath() string {
	return "comments." + strconv.Itoa(e.Index)
}

// Apply mutates t in place the same way the stores do.
func (p TicketPatch) Apply(t *domain.Ticket) error {
	if p.EditComment != nil && (p.EditComment.Index < 0 || p.EditComment.Index >= len(t.Comments)) {
		return ErrCommentIndex
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.TicketNumber != nil {
		t.TicketNumber = *p.TicketNumber
	}
	if p.Resolution != nil {
		t.Resolution = *p.Resolution
	}
	if p.ResolutionAttachments != nil {
		t.ResolutionAttachments = append([]domain.Attachment(nil), (*p.ResolutionAttachments)...)
	}
	if p.ClearAssignee {
		t.AssignedTo = nil
		t.AssignedBy = nil
	} else {
		if p.Assignee != nil {
			a := *p.Assignee
			t.AssignedTo = &a
		}
		if p.AssignedBy != nil {
			by := *p.AssignedBy
			t.AssignedBy = &by
		}
	}
	if p.Comments != nil {
		t.Comments = append([]domain.Comment(nil), (*p.Comments)...)
	}
	if p.ClearLegacyResponses {
		t.AdminResponses = nil
		t.CustomerResponses = nil
	}
	if p.EditComment != nil {
		t.Comments[p.EditComment.Index] = p.EditComment.Comment
	}
	if p.AppendComment != nil {
		t.Comments = append(t.Comments, *p.AppendComment)
	}
	t.LastUpdated = p.LastUpdated
	return nil
}
