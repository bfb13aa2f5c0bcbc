package dto

import (
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// AttachmentRequest is attachment metadata. File bytes are uploaded elsewhere.
type AttachmentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes" validate:"gte=0"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category    domain.TicketCategory `json:"category"`
	Module      *string               `json:"module"`
	SubCategory *string               `json:"subCategory"`
	TypeOfIssue *string               `json:"typeOfIssue"`
	Subject     string                `json:"subject" validate:"required,max=255"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Email       string                `json:"email" validate:"omitempty,email"`
	Customer    string                `json:"customer"`
	Attachments []AttachmentRequest   `json:"attachments" validate:"omitempty,dive"`
}

// Input converts the payload for the ticket service.
func (r CreateTicketRequest) Input() service.TicketCreateInput {
	return service.TicketCreateInput{
		Category:       r.Category,
		Module:         r.Module,
		SubCategory:    r.SubCategory,
		TypeOfIssue:    r.TypeOfIssue,
		Subject:        r.Subject,
		Description:    r.Description,
		Priority:       r.Priority,
		RequesterEmail: r.Email,
		RequesterName:  r.Customer,
		Attachments:    Attachments(r.Attachments),
	}
}

// UpdateTicketRequest payload. Omitted fields stay unchanged.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus   `json:"status"`
	Priority *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Category *domain.TicketCategory `json:"category"`
	Assignee *string                `json:"assignee" validate:"omitempty,email"`
}

// Input converts the payload for the ticket service.
func (r UpdateTicketRequest) Input() service.TicketUpdateInput {
	return service.TicketUpdateInput{
		Status:        r.Status,
		Priority:      r.Priority,
		Category:      r.Category,
		AssigneeEmail: r.Assignee,
	}
}

// ResolutionRequest payload.
type ResolutionRequest struct {
	Resolution  string              `json:"resolution" validate:"required"`
	Attachments []AttachmentRequest `json:"attachments" validate:"omitempty,dive"`
}

// AssignRequest payload.
type AssignRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CommentRequest payload. A comment needs text or at least one attachment.
type CommentRequest struct {
	Message     string              `json:"message" validate:"required_without=Attachments"`
	Attachments []AttachmentRequest `json:"attachments" validate:"omitempty,dive"`
}

// Input converts the payload for the comment service.
func (r CommentRequest) Input() service.CommentInput {
	return service.CommentInput{Message: r.Message, Attachments: Attachments(r.Attachments)}
}

// EditCommentRequest payload.
type EditCommentRequest struct {
	Message string `json:"message" validate:"required"`
}

// Attachments converts attachment payloads to domain metadata.
func Attachments(in []AttachmentRequest) []domain.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Attachment{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}
	return out
}

// TicketDetailResponse is a ticket with its normalized audit trail.
type TicketDetailResponse struct {
	*domain.Ticket
	Trail []domain.TrailEntry `json:"trail"`
}

// WarningResponse describes a side effect that failed after a committed write.
type WarningResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Warnings renders mutation warnings; nil when there are none.
func Warnings(in []*apperrors.DomainError) []WarningResponse {
	if len(in) == 0 {
		return nil
	}
	out := make([]WarningResponse, 0, len(in))
	for _, w := range in {
		out = append(out, WarningResponse{Code: w.Code, Message: w.Message, Details: w.Details})
	}
	return out
}

// KPIReportResponse is a report and the window it covers.
type KPIReportResponse struct {
	Window kpi.Bucket `json:"window"`
	kpi.Report
}
