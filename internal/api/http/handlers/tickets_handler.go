package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	comments    *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), auth.ActorFromContext(c), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListTickets(c.UserContext(), auth.ActorFromContext(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": tickets,
		"meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset, "count": len(tickets)},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, trail, err := h.tickets.GetTicket(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{Ticket: ticket, Trail: trail}})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.tickets.UpdateTicket(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return mutationResponse(c, http.StatusOK, result)
}

// UpdateResolution PUT /tickets/:id/resolution.
func (h *TicketsHandler) UpdateResolution(c *fiber.Ctx) error {
	var req dto.ResolutionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.tickets.UpdateResolution(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Resolution, dto.Attachments(req.Attachments))
	if err != nil {
		return err
	}
	return mutationResponse(c, http.StatusOK, result)
}

// Assign POST /tickets/:id/assignee.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.assignments.Assign(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Email)
	if err != nil {
		return err
	}
	return mutationResponse(c, http.StatusOK, result)
}

// Unassign DELETE /tickets/:id/assignee.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	ticket, err := h.assignments.Unassign(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// AppendComment POST /tickets/:id/comments.
func (h *TicketsHandler) AppendComment(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.comments.AppendComment(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return mutationResponse(c, http.StatusCreated, result)
}

// EditComment PUT /tickets/:id/comments/:index.
func (h *TicketsHandler) EditComment(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return apperrors.NewValidationError("comment index must be an integer", map[string]any{"index": c.Params("index")})
	}
	var req dto.EditCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.comments.EditComment(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), index, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// MigrateComments POST /tickets/:id/comments/migrate.
func (h *TicketsHandler) MigrateComments(c *fiber.Ctx) error {
	migrated, err := h.comments.MigrateLegacyComments(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"migrated": migrated}})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.tickets.DeleteTicket(c.UserContext(), auth.ActorFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func mutationResponse(c *fiber.Ctx, status int, result *service.MutationResult) error {
	body := fiber.Map{"data": result.Ticket}
	if warnings := dto.Warnings(result.Warnings); warnings != nil {
		body["warnings"] = warnings
	}
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(part))
	}
	for _, part := range splitList(c.Query("category")) {
		filter.Categories = append(filter.Categories, domain.TicketCategory(part))
	}
	if assignee := strings.TrimSpace(c.Query("assignee")); assignee != "" {
		filter.AssigneeEmail = &assignee
	}
	if requester := strings.TrimSpace(c.Query("requester")); requester != "" {
		filter.RequesterEmail = &requester
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTime accepts RFC 3339 or a bare date. Bare dates report dateOnly so
// callers can make an upper bound inclusive of the whole day.
func parseTime(val string) (t *time.Time, dateOnly bool, err error) {
	if val == "" {
		return nil, false, nil
	}
	if parsed, perr := time.Parse(time.RFC3339, val); perr == nil {
		return &parsed, false, nil
	}
	parsed, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return nil, false, err
	}
	return &parsed, true, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
