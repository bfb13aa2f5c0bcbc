package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/kpi"
	"github.com/spec-kit/servicedesk/internal/observability"
)

type stubSource struct {
	report kpi.Report
	err    error
	calls  atomic.Int32
}

func (s *stubSource) Snapshot(context.Context) (kpi.Report, error) {
	s.calls.Add(1)
	return s.report, s.err
}

func TestSweepPublishesBreaches(t *testing.T) {
	reg := prometheus.NewRegistry()
	source := &stubSource{report: kpi.Report{Count: 3, Breached: 2, Details: []kpi.Detail{
		{Priority: "Critical", Breached: true},
		{Priority: "High", Breached: true},
		{Priority: "High", Breached: false},
	}}}
	monitor := NewBreachMonitor(source, observability.NewMetrics(reg), zap.NewNop(), "@every 1h")

	monitor.Sweep(context.Background())

	assert.Equal(t, 2, monitor.Last().Breached)
	expected := `
# HELP servicedesk_sla_breached_tickets Tickets currently breaching an SLA target, by priority
# TYPE servicedesk_sla_breached_tickets gauge
servicedesk_sla_breached_tickets{priority="Critical"} 1
servicedesk_sla_breached_tickets{priority="High"} 1
servicedesk_sla_breached_tickets{priority="Low"} 0
servicedesk_sla_breached_tickets{priority="Medium"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "servicedesk_sla_breached_tickets"))
}

func TestSweepFailureKeepsLastReport(t *testing.T) {
	source := &stubSource{report: kpi.Report{Count: 1}}
	monitor := NewBreachMonitor(source, nil, zap.NewNop(), "@every 1h")
	monitor.Sweep(context.Background())

	source.err = errors.New("store down")
	monitor.Sweep(context.Background())

	assert.Equal(t, 1, monitor.Last().Count)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	source := &stubSource{}
	monitor := NewBreachMonitor(source, nil, zap.NewNop(), "@every 1h")

	require.NoError(t, monitor.Start(context.Background()))
	assert.Error(t, monitor.Start(context.Background()))
	assert.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	monitor.Stop()
	monitor.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	monitor := NewBreachMonitor(&stubSource{}, nil, zap.NewNop(), "every so often")
	assert.Error(t, monitor.Start(context.Background()))
}

type stubRunner struct{ err error }

func (r stubRunner) Run(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return nil
}

func TestStartEventWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, StartEventWorkers(ctx, nil, zap.NewNop(), stubRunner{}, nil))

	err := StartEventWorkers(context.Background(), nil, zap.NewNop(), stubRunner{err: errors.New("subscribe failed")})
	assert.EqualError(t, err, "subscribe failed")
}
