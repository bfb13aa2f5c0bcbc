package domain

import "strings"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusOnHold     TicketStatus = "On Hold"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

var ticketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusOnHold,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsValid reports whether s is one of the known states.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range ticketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresResolution reports whether entering s needs resolution text.
func (s TicketStatus) RequiresResolution() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// IsValid reports whether p is one of the four fixed tiers.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory classifies a ticket and selects its numbering sequence.
type TicketCategory string

const (
	CategoryIncident       TicketCategory = "Incident"
	CategoryServiceRequest TicketCategory = "Service request"
	CategoryChangeRequest  TicketCategory = "Change request"
)

// Numbering describes how ticket numbers are minted for a category.
type Numbering struct {
	Prefix     string
	CounterID  string
	StartValue int64
}

var numberingByCategory = map[TicketCategory]Numbering{
	CategoryIncident:       {Prefix: "IN", CounterID: "incident", StartValue: 100000},
	CategoryServiceRequest: {Prefix: "SR", CounterID: "service_request", StartValue: 200000},
	CategoryChangeRequest:  {Prefix: "CR", CounterID: "change_request", StartValue: 300000},
}

// Numbering returns the category's numbering triple. Unknown categories use Incident's.
func (c TicketCategory) Numbering() Numbering {
	if n, ok := numberingByCategory[c]; ok {
		return n
	}
	return numberingByCategory[CategoryIncident]
}

// IsKnown reports whether c has its own numbering sequence.
func (c TicketCategory) IsKnown() bool {
	_, ok := numberingByCategory[c]
	return ok
}

// MatchesNumber reports whether a ticket number carries the category's prefix.
func (c TicketCategory) MatchesNumber(number string) bool {
	return strings.HasPrefix(number, c.Numbering().Prefix)
}

// Assignee is the responder a ticket is assigned to.
type Assignee struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Role  string `json:"role" bson:"role"`
}

// Attachment is metadata for a stored file. Bytes live outside the ticket store.
type Attachment struct {
	Name        string `json:"name" bson:"name"`
	URL         string `json:"url" bson:"url"`
	ContentType string `json:"contentType,omitempty" bson:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty" bson:"sizeBytes,omitempty"`
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string         `json:"id" bson:"_id"`
	TicketNumber string         `json:"ticketNumber" bson:"ticketNumber"`
	Category     TicketCategory `json:"category" bson:"category"`
	Module       *string        `json:"module,omitempty" bson:"module,omitempty"`
	SubCategory  *string        `json:"subCategory,omitempty" bson:"subCategory,omitempty"`
	TypeOfIssue  *string        `json:"typeOfIssue,omitempty" bson:"typeOfIssue,omitempty"`
	Subject      string         `json:"subject" bson:"subject"`
	Description  string         `json:"description" bson:"description"`
	Priority     TicketPriority `json:"priority" bson:"priority"`
	Status       TicketStatus   `json:"status" bson:"status"`

	Resolution            string       `json:"resolution" bson:"resolution"`
	ResolutionAttachments []Attachment `json:"resolutionAttachments,omitempty" bson:"resolutionAttachments,omitempty"`

	Email      string    `json:"email" bson:"email"`
	Customer   string    `json:"customer" bson:"customer"`
	AssignedTo *Assignee `json:"assignedTo" bson:"assignedTo"`
	AssignedBy *string   `json:"assignedBy" bson:"assignedBy"`

	Created     Timestamp `json:"created" bson:"created"`
	LastUpdated Timestamp `json:"lastUpdated" bson:"lastUpdated"`

	Comments          []Comment        `json:"comments,omitempty" bson:"comments,omitempty"`
	AdminResponses    []LegacyResponse `json:"adminResponses,omitempty" bson:"adminResponses,omitempty"`
	CustomerResponses []LegacyResponse `json:"customerResponses,omitempty" bson:"customerResponses,omitempty"`
	Attachments       []Attachment     `json:"attachments,omitempty" bson:"attachments,omitempty"`
}

// AssigneeEmail returns the assignee's email or "" when unassigned.
func (t *Ticket) AssigneeEmail() string {
	if t == nil || t.AssignedTo == nil {
		return ""
	}
	return strings.TrimSpace(t.AssignedTo.Email)
}

// IsAssigned reports whether the ticket has a responder with an email.
func (t *Ticket) IsAssigned() bool {
	return t.AssigneeEmail() != ""
}

// HasResolution reports whether resolution text is present.
func (t *Ticket) HasResolution() bool {
	return strings.TrimSpace(t.Resolution) != ""
}

// Recipients returns the requester and, when distinct, the assignee.
func (t *Ticket) Recipients() []string {
	recipients := make([]string, 0, 2)
	if requester := strings.TrimSpace(t.Email); requester != "" {
		recipients = append(recipients, requester)
	}
	if assignee := t.AssigneeEmail(); assignee != "" && !strings.EqualFold(assignee, t.Email) {
		recipients = append(recipients, assignee)
	}
	return recipients
}
