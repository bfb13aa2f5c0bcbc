package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryNumbering(t *testing.T) {
	tests := []struct {
		category TicketCategory
		want     Numbering
	}{
		{CategoryIncident, Numbering{Prefix: "IN", CounterID: "incident", StartValue: 100000}},
		{CategoryServiceRequest, Numbering{Prefix: "SR", CounterID: "service_request", StartValue: 200000}},
		{CategoryChangeRequest, Numbering{Prefix: "CR", CounterID: "change_request", StartValue: 300000}},
		{TicketCategory("Problem"), Numbering{Prefix: "IN", CounterID: "incident", StartValue: 100000}},
		{TicketCategory(""), Numbering{Prefix: "IN", CounterID: "incident", StartValue: 100000}},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.Numbering())
		})
	}

	assert.True(t, CategoryServiceRequest.MatchesNumber("SR200004"))
	assert.False(t, CategoryServiceRequest.MatchesNumber("IN100004"))
	assert.False(t, TicketCategory("Problem").IsKnown())
}

func TestStatusGuards(t *testing.T) {
	assert.True(t, TicketStatusResolved.RequiresResolution())
	assert.True(t, TicketStatusClosed.RequiresResolution())
	assert.False(t, TicketStatusOnHold.RequiresResolution())
	assert.True(t, TicketStatusOnHold.IsValid())
	assert.False(t, TicketStatus("Cancelled").IsValid())
	assert.False(t, TicketPriority("Urgent").IsValid())
}

func TestRecipients(t *testing.T) {
	ticket := &Ticket{Email: "req@example.com"}
	assert.Equal(t, []string{"req@example.com"}, ticket.Recipients())

	ticket.AssignedTo = &Assignee{Email: "REQ@example.com"}
	assert.Equal(t, []string{"req@example.com"}, ticket.Recipients())

	ticket.AssignedTo = &Assignee{Email: "agent@example.com"}
	assert.Equal(t, []string{"req@example.com", "agent@example.com"}, ticket.Recipients())
}

func TestSanitizeMessage(t *testing.T) {
	in := `<p onclick="x()">Hi <script>alert(1)</script><img src="data:image/png;base64,iVBORw0KGgo=" width="120"></p>`
	out := SanitizeMessage(in)

	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, `src="data:image/png;base64,iVBORw0KGgo="`)
	assert.Contains(t, out, `width="120"`)
}
