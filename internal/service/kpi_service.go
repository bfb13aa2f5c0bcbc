package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// KPIService loads ticket sets for the KPI engine. It never mutates tickets.
type KPIService struct {
	tickets repository.TicketRepository
	clock   Clock
	logger  *zap.Logger
}

// KPIDependencies bundles collaborators.
type KPIDependencies struct {
	TicketRepo repository.TicketRepository
	Clock      Clock
	Logger     *zap.Logger
}

// KPIQuery selects the tickets a report covers.
type KPIQuery struct {
	Period        kpi.PeriodQuery
	AssigneeEmail *string
	Priorities    []domain.TicketPriority
	Categories    []domain.TicketCategory
}

// KPITrendQuery selects trend buckets. Weeks wins over Months; with neither,
// the week-of-month buckets of Month (default: the current month) are used.
type KPITrendQuery struct {
	Month         *time.Time
	Weeks         int
	Months        int
	AssigneeEmail *string
}

// NewKPIService constructs the service.
func NewKPIService(deps KPIDependencies) *KPIService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KPIService{tickets: deps.TicketRepo, clock: deps.Clock, logger: logger}
}

// Report computes the KPI report for the query window.
func (s *KPIService) Report(ctx context.Context, actor domain.Actor, query KPIQuery) (kpi.Report, kpi.Bucket, error) {
	now := s.clock.now().Time
	window, err := query.Period.Range(now)
	if err != nil {
		return kpi.Report{}, kpi.Bucket{}, apperrors.NewValidationError(err.Error(), map[string]any{"period": query.Period.Period})
	}

	filter, err := kpiScope(actor, query.AssigneeEmail)
	if err != nil {
		return kpi.Report{}, kpi.Bucket{}, err
	}
	filter.Priorities = query.Priorities
	filter.Categories = query.Categories
	if !window.From.IsZero() {
		from := window.From
		filter.CreatedFrom = &from
	}

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return kpi.Report{}, kpi.Bucket{}, apperrors.MapError(err)
	}
	if !window.From.IsZero() {
		tickets = kpi.FilterCreatedBetween(tickets, window)
	}
	return kpi.Compute(tickets, now), window, nil
}

// Trend computes one report per bucket.
func (s *KPIService) Trend(ctx context.Context, actor domain.Actor, query KPITrendQuery) ([]kpi.TrendPoint, error) {
	now := s.clock.now().Time
	var buckets []kpi.Bucket
	switch {
	case query.Weeks > 0:
		buckets = kpi.WeeklyBuckets(query.Weeks, now)
	case query.Months > 0:
		buckets = kpi.MonthlyBuckets(query.Months, now)
	case query.Month != nil:
		buckets = kpi.WeekOfMonthBuckets(*query.Month)
	default:
		buckets = kpi.WeekOfMonthBuckets(now)
	}

	filter, err := kpiScope(actor, query.AssigneeEmail)
	if err != nil {
		return nil, err
	}
	from := buckets[0].From
	filter.CreatedFrom = &from

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return kpi.Trend(tickets, buckets, now), nil
}

// Export writes the query's report as an XLSX workbook.
func (s *KPIService) Export(ctx context.Context, actor domain.Actor, query KPIQuery, w io.Writer) error {
	report, _, err := s.Report(ctx, actor, query)
	if err != nil {
		return err
	}
	if err := kpi.ExportXLSX(w, report); err != nil {
		s.logger.Error("kpi export failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Snapshot computes the report over every ticket, as of now.
func (s *KPIService) Snapshot(ctx context.Context) (kpi.Report, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return kpi.Report{}, apperrors.MapError(err)
	}
	return kpi.Compute(tickets, s.clock.now().Time), nil
}

// Employees only see their own numbers; requesters have no KPI view.
func kpiScope(actor domain.Actor, assignee *string) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{AssigneeEmail: assignee}
	switch actor.Role {
	case domain.RoleClient:
		return filter, apperrors.NewForbidden("KPIs are not available to requesters")
	case domain.RoleEmployee:
		email := actor.Email
		filter.AssigneeEmail = &email
	}
	return filter, nil
}
