package kpi

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/servicedesk/internal/domain"
)

var base = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func at(d time.Duration) domain.Timestamp { return domain.NewTimestamp(base.Add(d)) }

func assignedTicket(priority domain.TicketPriority, status domain.TicketStatus, comments ...domain.Comment) domain.Ticket {
	return domain.Ticket{
		ID:           "t-" + string(priority),
		TicketNumber: "IN100001",
		Priority:     priority,
		Status:       status,
		Email:        "riley@example.com",
		AssignedTo:   &domain.Assignee{Name: "Jane", Email: "jane@example.com"},
		Created:      at(0),
		LastUpdated:  at(0),
		Comments:     comments,
	}
}

func TestComputeHighPriorityExample(t *testing.T) {
	ticket := assignedTicket(domain.TicketPriorityHigh, domain.TicketStatusResolved,
		domain.Comment{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(30 * time.Minute)},
		domain.Comment{Message: "Resolution updated: rebooted", AuthorRole: domain.AuthorRoleResolver, Timestamp: at(3 * time.Hour)},
	)

	report := Compute([]domain.Ticket{ticket}, base.Add(24*time.Hour))

	require.Equal(t, 1, report.Count)
	d := report.Details[0]
	require.NotNil(t, d.ResponseMs)
	require.NotNil(t, d.ResolutionMs)
	assert.Equal(t, (30 * time.Minute).Milliseconds(), *d.ResponseMs)
	assert.Equal(t, (150 * time.Minute).Milliseconds(), *d.ResolutionMs)
	assert.False(t, d.ResponseBreached)
	assert.True(t, d.ResolutionBreached)
	assert.True(t, d.Breached)
	assert.Equal(t, 1, report.Breached)
}

func TestComputeDetectsEntries(t *testing.T) {
	tests := []struct {
		name         string
		comments     []domain.Comment
		status       domain.TicketStatus
		lastUpdated  time.Duration
		wantAssigned *time.Duration
		wantResolved *time.Duration
	}{
		{
			name: "text match is case insensitive",
			comments: []domain.Comment{
				{Message: "Status changed from Open to In Progress. ASSIGNED TO Jane.", AuthorRole: domain.AuthorRoleUser, Timestamp: at(time.Minute)},
			},
			status:       domain.TicketStatusInProgress,
			wantAssigned: durationPtr(time.Minute),
		},
		{
			name: "wrong roles are ignored",
			comments: []domain.Comment{
				{Message: "I was assigned to this?", AuthorRole: domain.AuthorRoleCustomer, Timestamp: at(time.Minute)},
				{Message: "Resolution updated: done", AuthorRole: domain.AuthorRoleUser, Timestamp: at(2 * time.Minute)},
			},
			status: domain.TicketStatusInProgress,
		},
		{
			name: "event tags count without matching text",
			comments: []domain.Comment{
				{Message: "Handed over to Jane.", AuthorRole: domain.AuthorRoleSystem, EventType: domain.CommentEventAssignment, Timestamp: at(5 * time.Minute)},
				{Message: "Fixed.", AuthorRole: domain.AuthorRoleResolver, EventType: domain.CommentEventResolution, Timestamp: at(time.Hour)},
			},
			status:       domain.TicketStatusInProgress,
			wantAssigned: durationPtr(5 * time.Minute),
			wantResolved: durationPtr(time.Hour),
		},
		{
			name: "tagged manual comments never match text",
			comments: []domain.Comment{
				{Message: "Looks like this was assigned to Jane already.", AuthorRole: domain.AuthorRoleUser, EventType: domain.CommentEventManual, Timestamp: at(time.Minute)},
				{Message: "Resolution updated per the call.", AuthorRole: domain.AuthorRoleResolver, EventType: domain.CommentEventManual, Timestamp: at(2 * time.Minute)},
			},
			status: domain.TicketStatusInProgress,
		},
		{
			name: "first entry in time order wins",
			comments: []domain.Comment{
				{Message: "Ticket assigned to Omar by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(20 * time.Minute)},
				{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(10 * time.Minute)},
			},
			status:       domain.TicketStatusOpen,
			wantAssigned: durationPtr(10 * time.Minute),
		},
		{
			name: "resolved falls back to lastUpdated",
			comments: []domain.Comment{
				{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(10 * time.Minute)},
			},
			status:       domain.TicketStatusResolved,
			lastUpdated:  4 * time.Hour,
			wantAssigned: durationPtr(10 * time.Minute),
			wantResolved: durationPtr(4 * time.Hour),
		},
		{
			name:        "closed has no fallback",
			status:      domain.TicketStatusClosed,
			lastUpdated: 4 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := assignedTicket(domain.TicketPriorityLow, tt.status, tt.comments...)
			ticket.LastUpdated = at(tt.lastUpdated)

			d := Compute([]domain.Ticket{ticket}, base).Details[0]

			if tt.wantAssigned == nil {
				assert.Nil(t, d.AssignedAt)
			} else if assert.NotNil(t, d.AssignedAt) {
				assert.Equal(t, base.Add(*tt.wantAssigned), d.AssignedAt.UTC())
			}
			if tt.wantResolved == nil {
				assert.Nil(t, d.ResolvedAt)
			} else if assert.NotNil(t, d.ResolvedAt) {
				assert.Equal(t, base.Add(*tt.wantResolved), d.ResolvedAt.UTC())
			}
		})
	}
}

func TestComputeAveragesUseAssignedCount(t *testing.T) {
	measured := assignedTicket(domain.TicketPriorityLow, domain.TicketStatusInProgress,
		domain.Comment{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(time.Hour)},
	)
	unmeasured := assignedTicket(domain.TicketPriorityLow, domain.TicketStatusOpen)
	unassigned := assignedTicket(domain.TicketPriorityLow, domain.TicketStatusOpen)
	unassigned.AssignedTo = nil

	report := Compute([]domain.Ticket{measured, unmeasured, unassigned}, base.Add(time.Hour))

	assert.Equal(t, 2, report.Count)
	assert.Len(t, report.Details, 2)
	assert.InDelta(t, float64(time.Hour.Milliseconds())/2, report.AvgResponseMs, 0.001)
	assert.Zero(t, report.AvgResolutionMs)
}

func TestComputeNegativeDurationsAreKept(t *testing.T) {
	ticket := assignedTicket(domain.TicketPriorityLow, domain.TicketStatusOpen,
		domain.Comment{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(-time.Minute)},
	)

	d := Compute([]domain.Ticket{ticket}, base).Details[0]

	require.NotNil(t, d.ResponseMs)
	assert.Equal(t, -time.Minute.Milliseconds(), *d.ResponseMs)
}

func TestComputeOpenEndedBreach(t *testing.T) {
	tests := []struct {
		name     string
		priority domain.TicketPriority
		status   domain.TicketStatus
		elapsed  time.Duration
		comments []domain.Comment
		want     bool
	}{
		{name: "critical unanswered past 10m", priority: domain.TicketPriorityCritical, status: domain.TicketStatusOpen, elapsed: 11 * time.Minute, want: true},
		{name: "critical unanswered within 10m", priority: domain.TicketPriorityCritical, status: domain.TicketStatusOpen, elapsed: 9 * time.Minute, want: false},
		{name: "unknown priority uses low", priority: "Urgent", status: domain.TicketStatusOpen, elapsed: 5 * time.Hour, want: false},
		{name: "closed tickets are not open ended", priority: domain.TicketPriorityCritical, status: domain.TicketStatusClosed, elapsed: 48 * time.Hour, want: false},
		{
			name:     "resolution clock runs from assignment",
			priority: domain.TicketPriorityMedium,
			status:   domain.TicketStatusInProgress,
			elapsed:  7 * time.Hour,
			comments: []domain.Comment{{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(90 * time.Minute)}},
			want:     false,
		},
		{
			name:     "resolution overdue",
			priority: domain.TicketPriorityMedium,
			status:   domain.TicketStatusInProgress,
			elapsed:  8 * time.Hour,
			comments: []domain.Comment{{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(90 * time.Minute)}},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := assignedTicket(tt.priority, tt.status, tt.comments...)
			d := Compute([]domain.Ticket{ticket}, base.Add(tt.elapsed)).Details[0]
			assert.Equal(t, tt.want, d.Breached)
		})
	}
}

func TestBreachesByPriority(t *testing.T) {
	report := Report{Details: []Detail{
		{Priority: "High", Breached: true},
		{Priority: "High", Breached: true},
		{Priority: "Low", Breached: false},
	}}

	got := report.BreachesByPriority()

	assert.Equal(t, 2, got["High"])
	assert.Equal(t, 0, got["Low"])
	assert.Equal(t, 0, got["Critical"])
}

func TestExportXLSX(t *testing.T) {
	ticket := assignedTicket(domain.TicketPriorityHigh, domain.TicketStatusResolved,
		domain.Comment{Message: "Ticket assigned to Jane by Ada.", AuthorRole: domain.AuthorRoleSystem, Timestamp: at(30 * time.Minute)},
		domain.Comment{Message: "Resolution updated: rebooted", AuthorRole: domain.AuthorRoleResolver, Timestamp: at(3 * time.Hour)},
	)
	report := Compute([]domain.Ticket{ticket}, base)

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, detailSheet}, f.GetSheetList())
	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, detailColumns, rows[0])
	assert.Equal(t, "IN100001", rows[1][0])
	assert.Equal(t, "30", rows[1][9])
	assert.Equal(t, "150", rows[1][10])
	assert.Equal(t, "Yes", rows[1][11])

	count, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func durationPtr(d time.Duration) *time.Duration { return &d }
