package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/notification"
	"github.com/spec-kit/servicedesk/internal/observability"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func TestNotificationSubjects(t *testing.T) {
	ticket := &domain.Ticket{
		TicketNumber: "CR300007",
		Status:       domain.TicketStatusClosed,
		AssignedTo:   &domain.Assignee{Name: "Omar Ops", Email: "omar@example.com"},
	}

	tests := []struct {
		kind notification.Kind
		want string
	}{
		{notification.KindAssignment, "Ticket CR300007 has been assigned to Omar Ops"},
		{notification.KindResolution, "Ticket CR300007 is Closed"},
		{notification.KindComment, "New update on ticket CR300007"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, notificationSubject(tt.kind, ticket))
		})
	}
}

func TestNotifyReportsFailuresAsWarnings(t *testing.T) {
	reg := prometheus.NewRegistry()
	sender := &recordingSender{err: assert.AnError}
	svc := NewNotificationService(NotificationDependencies{
		Sender:  sender,
		Metrics: observability.NewMetrics(reg),
	})
	ticket := &domain.Ticket{ID: "t-1", TicketNumber: "IN100000", Email: "riley@example.com"}

	warning := svc.Notify(context.Background(), notification.KindComment, ticket, ticket.Recipients(), "hello", employeeActor)

	require.NotNil(t, warning)
	assert.Equal(t, apperrors.CodeNotificationDispatch, warning.Code)
	assert.ErrorIs(t, warning, assert.AnError)
	require.Len(t, sender.notifications(), 1)
	assert.Equal(t, "Jane Doe", sender.notifications()[0].Actor)

	expected := `
# HELP servicedesk_notification_failures_total Notifications that could not be dispatched
# TYPE servicedesk_notification_failures_total counter
servicedesk_notification_failures_total{kind="comment"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "servicedesk_notification_failures_total"))
}

func TestNotifySkipsEmptyRecipients(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(NotificationDependencies{Sender: sender})

	warning := svc.Notify(context.Background(), notification.KindComment, &domain.Ticket{}, nil, "hello", employeeActor)

	assert.Nil(t, warning)
	assert.Empty(t, sender.notifications())
}
