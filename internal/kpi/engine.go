// Package kpi derives response and resolution metrics and SLA breaches from
// ticket records. Everything here is a pure read-side projection.
package kpi

import (
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Targets are the SLA limits for one priority tier.
type Targets struct {
	Response   time.Duration
	Resolution time.Duration
}

var slaTargets = map[domain.TicketPriority]Targets{
	domain.TicketPriorityCritical: {Response: 10 * time.Minute, Resolution: time.Hour},
	domain.TicketPriorityHigh:     {Response: time.Hour, Resolution: 2 * time.Hour},
	domain.TicketPriorityMedium:   {Response: 2 * time.Hour, Resolution: 6 * time.Hour},
	domain.TicketPriorityLow:      {Response: 6 * time.Hour, Resolution: 24 * time.Hour},
}

// TargetsFor returns the SLA targets of priority. Unknown priorities get Low's.
func TargetsFor(priority domain.TicketPriority) Targets {
	if t, ok := slaTargets[priority]; ok {
		return t
	}
	return slaTargets[domain.TicketPriorityLow]
}

// Detail is the KPI row of one assigned ticket.
type Detail struct {
	TicketID           string     `json:"ticketId"`
	TicketNumber       string     `json:"ticketNumber"`
	Subject            string     `json:"subject"`
	Category           string     `json:"category"`
	Priority           string     `json:"priority"`
	Status             string     `json:"status"`
	Assignee           string     `json:"assignee"`
	AssigneeEmail      string     `json:"assigneeEmail"`
	Created            time.Time  `json:"created"`
	AssignedAt         *time.Time `json:"assignedAt"`
	ResolvedAt         *time.Time `json:"resolvedAt"`
	ResponseMs         *int64     `json:"responseMs"`
	ResolutionMs       *int64     `json:"resolutionMs"`
	ResponseBreached   bool       `json:"responseBreached"`
	ResolutionBreached bool       `json:"resolutionBreached"`
	Breached           bool       `json:"breached"`
}

// Report aggregates Details.
type Report struct {
	Count           int      `json:"count"`
	AvgResponseMs   float64  `json:"avgResponseMs"`
	AvgResolutionMs float64  `json:"avgResolutionMs"`
	Breached        int      `json:"breached"`
	Details         []Detail `json:"details"`
}

// Compute builds the report for tickets as of now. Unassigned tickets are
// skipped. Averages divide by Count, so tickets without a measured duration
// pull the mean down.
func Compute(tickets []domain.Ticket, now time.Time) Report {
	report := Report{Details: make([]Detail, 0, len(tickets))}
	var responseSum, resolutionSum int64

	for i := range tickets {
		ticket := &tickets[i]
		if !ticket.IsAssigned() {
			continue
		}
		detail := evaluate(ticket, now)
		if detail.ResponseMs != nil {
			responseSum += *detail.ResponseMs
		}
		if detail.ResolutionMs != nil {
			resolutionSum += *detail.ResolutionMs
		}
		if detail.Breached {
			report.Breached++
		}
		report.Details = append(report.Details, detail)
	}

	report.Count = len(report.Details)
	if report.Count > 0 {
		report.AvgResponseMs = float64(responseSum) / float64(report.Count)
		report.AvgResolutionMs = float64(resolutionSum) / float64(report.Count)
	}
	return report
}

func evaluate(ticket *domain.Ticket, now time.Time) Detail {
	detail := Detail{
		TicketID:      ticket.ID,
		TicketNumber:  ticket.TicketNumber,
		Subject:       ticket.Subject,
		Category:      string(ticket.Category),
		Priority:      string(ticket.Priority),
		Status:        string(ticket.Status),
		AssigneeEmail: ticket.AssigneeEmail(),
	}
	if ticket.AssignedTo != nil {
		detail.Assignee = ticket.AssignedTo.Name
	}

	trail := domain.TrailComments(ticket)
	created, hasCreated := ticket.Created.Time, ticket.Created.IsSet()
	if hasCreated {
		detail.Created = created
	}
	assigned, hasAssigned := AssignedAt(trail)
	resolved, hasResolved := ResolvedAt(ticket, trail)
	if hasAssigned {
		detail.AssignedAt = &assigned
	}
	if hasResolved {
		detail.ResolvedAt = &resolved
	}
	if hasCreated && hasAssigned {
		detail.ResponseMs = millis(assigned.Sub(created))
	}
	if hasAssigned && hasResolved {
		detail.ResolutionMs = millis(resolved.Sub(assigned))
	}

	targets := TargetsFor(ticket.Priority)
	open := !ticket.Status.RequiresResolution()
	switch {
	case detail.ResponseMs != nil:
		detail.ResponseBreached = *detail.ResponseMs > targets.Response.Milliseconds()
	case open && hasCreated:
		detail.ResponseBreached = now.Sub(created) > targets.Response
	}
	switch {
	case detail.ResolutionMs != nil:
		detail.ResolutionBreached = *detail.ResolutionMs > targets.Resolution.Milliseconds()
	case open && hasAssigned:
		detail.ResolutionBreached = now.Sub(assigned) > targets.Resolution
	case open && hasCreated:
		detail.ResolutionBreached = now.Sub(created) > targets.Resolution
	}
	detail.Breached = detail.ResponseBreached || detail.ResolutionBreached
	return detail
}

// AssignedAt returns the timestamp of the first assignment entry in a
// display-ordered trail.
func AssignedAt(trail []domain.Comment) (time.Time, bool) {
	for _, c := range trail {
		if isAssignmentEntry(c) && c.Timestamp.IsSet() {
			return c.Timestamp.Time, true
		}
	}
	return time.Time{}, false
}

// ResolvedAt returns the timestamp of the first resolution entry, falling back
// to lastUpdated for Resolved tickets that have none.
func ResolvedAt(ticket *domain.Ticket, trail []domain.Comment) (time.Time, bool) {
	for _, c := range trail {
		if isResolutionEntry(c) && c.Timestamp.IsSet() {
			return c.Timestamp.Time, true
		}
	}
	if ticket.Status == domain.TicketStatusResolved && ticket.LastUpdated.IsSet() {
		return ticket.LastUpdated.Time, true
	}
	return time.Time{}, false
}

// Entries are recognised by their event tag or, for trails written before
// tags existed, by their text and author role.
func isAssignmentEntry(c domain.Comment) bool {
	if c.EventType != "" {
		return c.EventType == domain.CommentEventAssignment
	}
	if c.AuthorRole != domain.AuthorRoleUser && c.AuthorRole != domain.AuthorRoleSystem {
		return false
	}
	return strings.Contains(strings.ToLower(c.Message), "assigned to")
}

func isResolutionEntry(c domain.Comment) bool {
	if c.EventType != "" {
		return c.EventType == domain.CommentEventResolution
	}
	return c.AuthorRole == domain.AuthorRoleResolver &&
		strings.Contains(strings.ToLower(c.Message), "resolution updated")
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

// BreachesByPriority counts breached rows per priority.
func (r Report) BreachesByPriority() map[string]int {
	out := make(map[string]int, len(slaTargets))
	for p := range slaTargets {
		out[string(p)] = 0
	}
	for _, d := range r.Details {
		if d.Breached {
			out[d.Priority]++
		}
	}
	return out
}
