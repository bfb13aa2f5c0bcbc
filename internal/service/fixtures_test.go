package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/roster"
)

var (
	adminActor     = domain.Actor{Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin}
	employeeActor  = domain.Actor{Name: "Jane Doe", Email: "jane@example.com", Role: domain.RoleEmployee}
	managerActor   = domain.Actor{Name: "Pat Manager", Email: "pat@example.com", Role: domain.RoleProjectManager}
	requesterActor = domain.Actor{Name: "Riley Client", Email: "riley@example.com", Role: domain.RoleClient}
	otherClient    = domain.Actor{Name: "Sam Client", Email: "sam@example.com", Role: domain.RoleClient}
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSender) notifications() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Notification(nil), s.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo        repository.TicketRepository
	counters    repository.CounterRepository
	sender      *recordingSender
	clock       *fakeClock
	tickets     *TicketService
	assignments *AssignmentService
	comments    *CommentService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCounters(t, repository.NewMemoryCounterRepository())
}

func newFixtureWithCounters(t *testing.T, counters repository.CounterRepository) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repository.NewMemoryTicketRepository(),
		counters: counters,
		sender:   &recordingSender{},
		clock:    &fakeClock{now: time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)},
	}
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	directory := roster.NewMemoryDirectory(
		domain.Assignee{Name: "Jane Doe", Email: "jane@example.com", Role: "employee"},
		domain.Assignee{Name: "Omar Ops", Email: "omar@example.com", Role: "employee"},
	)
	notifier := NewNotificationService(NotificationDependencies{
		Sender:     f.sender,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	sequence := NewSequenceGenerator(SequenceDependencies{
		CounterRepo:  counters,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
	clock := Clock(f.clock.Now)

	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo: f.repo,
		Sequence:   sequence,
		Roster:     directory,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	f.assignments = NewAssignmentService(AssignmentDependencies{
		TicketRepo: f.repo,
		Roster:     directory,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	f.comments = NewCommentService(CommentDependencies{
		TicketRepo: f.repo,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	return f
}

func (f *fixture) createTicket(t *testing.T, category domain.TicketCategory) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), requesterActor, TicketCreateInput{
		Category:    category,
		Subject:     "VPN drops every hour",
		Description: "<p>Connection resets.</p>",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) reload(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func ptr[T any](v T) *T { return &v }
