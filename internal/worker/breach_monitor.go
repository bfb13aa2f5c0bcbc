package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/observability"
)

// ReportSource computes a KPI report over every ticket.
type ReportSource interface {
	Snapshot(ctx context.Context) (kpi.Report, error)
}

// BreachMonitor periodically recomputes SLA breaches and publishes them as
// gauges. It never changes tickets.
type BreachMonitor struct {
	source   ReportSource
	metrics  *observability.Metrics
	logger   *zap.Logger
	schedule string
	timeout  time.Duration

	mu        sync.Mutex
	scheduler *cron.Cron
	last      kpi.Report
}

// NewBreachMonitor constructs a monitor running on a cron schedule such as "@every 5m".
func NewBreachMonitor(source ReportSource, metrics *observability.Metrics, logger *zap.Logger, schedule string) *BreachMonitor {
	return &BreachMonitor{
		source:   source,
		metrics:  metrics,
		logger:   logger,
		schedule: schedule,
		timeout:  30 * time.Second,
	}
}

// Start runs one sweep immediately and schedules the rest.
func (m *BreachMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler != nil {
		return fmt.Errorf("breach monitor already started")
	}

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(m.schedule, func() { m.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", m.schedule, err)
	}
	m.scheduler = scheduler
	scheduler.Start()
	go m.Sweep(ctx)

	m.logger.Info("sla breach monitor started", zap.String("schedule", m.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (m *BreachMonitor) Stop() {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}

// Sweep computes the report once and publishes per-priority breach counts.
func (m *BreachMonitor) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	report, err := m.source.Snapshot(ctx)
	if err != nil {
		m.logger.Error("sla sweep failed", zap.Error(err))
		return
	}

	byPriority := report.BreachesByPriority()
	m.metrics.SetBreaches(byPriority)

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()

	if report.Breached > 0 {
		m.logger.Warn("sla breaches detected",
			zap.Int("breached", report.Breached),
			zap.Int("assigned", report.Count),
			zap.Any("by_priority", byPriority))
		return
	}
	m.logger.Debug("sla sweep clean", zap.Int("assigned", report.Count))
}

// Last returns the most recent sweep result.
func (m *BreachMonitor) Last() kpi.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
