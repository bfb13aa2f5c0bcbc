package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// KPIHandler serves SLA reports.
type KPIHandler struct {
	service *service.KPIService
}

// NewKPIHandler constructs handler.
func NewKPIHandler(kpiService *service.KPIService) *KPIHandler {
	return &KPIHandler{service: kpiService}
}

// Report GET /kpi.
func (h *KPIHandler) Report(c *fiber.Ctx) error {
	query, err := parseKPIQuery(c)
	if err != nil {
		return err
	}
	report, window, err := h.service.Report(c.UserContext(), auth.ActorFromContext(c), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.KPIReportResponse{Window: window, Report: report}})
}

// Trend GET /kpi/trend.
func (h *KPIHandler) Trend(c *fiber.Ctx) error {
	query := service.KPITrendQuery{
		Weeks:  c.QueryInt("weeks"),
		Months: c.QueryInt("months"),
	}
	if month := c.Query("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return apperrors.NewValidationError("month must be YYYY-MM", map[string]any{"month": month})
		}
		query.Month = &parsed
	}
	if assignee := c.Query("assignee"); assignee != "" {
		query.AssigneeEmail = &assignee
	}
	points, err := h.service.Trend(c.UserContext(), auth.ActorFromContext(c), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": points})
}

// Export GET /kpi/export.
func (h *KPIHandler) Export(c *fiber.Ctx) error {
	query, err := parseKPIQuery(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.service.Export(c.UserContext(), auth.ActorFromContext(c), query, &buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="kpi-%s.xlsx"`, time.Now().UTC().Format("20060102-150405")))
	return c.Send(buf.Bytes())
}

// parseKPIQuery reads period, n, from, to, assignee and priority. When weeks
// or months is given without a period it selects the matching last_n preset.
func parseKPIQuery(c *fiber.Ctx) (service.KPIQuery, error) {
	period := kpi.PeriodQuery{Period: kpi.Period(c.Query("period"))}
	period.N = c.QueryInt("n")
	if weeks := c.QueryInt("weeks"); weeks > 0 && period.Period == "" {
		period.Period, period.N = kpi.PeriodLastNWeeks, weeks
	}
	if months := c.QueryInt("months"); months > 0 && period.Period == "" {
		period.Period, period.N = kpi.PeriodLastNMonths, months
	}

	from, _, err := parseTime(c.Query("from"))
	if err != nil {
		return service.KPIQuery{}, apperrors.NewValidationError("from must be a date or RFC 3339 time", map[string]any{"from": c.Query("from")})
	}
	to, dateOnly, err := parseTime(c.Query("to"))
	if err != nil {
		return service.KPIQuery{}, apperrors.NewValidationError("to must be a date or RFC 3339 time", map[string]any{"to": c.Query("to")})
	}
	if to != nil && dateOnly {
		end := to.Add(24 * time.Hour)
		to = &end
	}
	period.From, period.To = from, to
	if period.Period == "" && (from != nil || to != nil) {
		period.Period = kpi.PeriodRange
	}

	query := service.KPIQuery{Period: period}
	if assignee := c.Query("assignee"); assignee != "" {
		query.AssigneeEmail = &assignee
	}
	for _, part := range splitList(c.Query("priority")) {
		query.Priorities = append(query.Priorities, domain.TicketPriority(part))
	}
	for _, part := range splitList(c.Query("category")) {
		query.Categories = append(query.Categories, domain.TicketCategory(part))
	}
	return query, nil
}
