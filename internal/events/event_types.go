package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventAny subscribes a handler to every event type.
	EventAny EventType = "*"

	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketUnassigned  EventType = "ticket_unassigned"
	EventCommentAdded      EventType = "comment_added"
	EventCommentEdited     EventType = "comment_edited"
	EventResolutionUpdated EventType = "resolution_updated"
	EventCommentsMigrated  EventType = "comments_migrated"
	EventTicketDeleted     EventType = "ticket_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

// ActorFrom converts the authenticated caller.
func ActorFrom(a domain.Actor) Actor {
	return Actor{Name: a.Name, Email: a.Email, Role: a.Role}
}

// Event represents a committed ticket mutation.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	TicketID     string         `json:"ticket_id"`
	TicketNumber string         `json:"ticket_number,omitempty"`
	Actor        Actor          `json:"actor"`
	Timestamp    time.Time      `json:"timestamp"`
	Payload      map[string]any `json:"payload,omitempty"`
}
