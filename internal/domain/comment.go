package domain

// AuthorRole tags who or what produced a comment.
type AuthorRole string

const (
	AuthorRoleUser     AuthorRole = "user"
	AuthorRoleSystem   AuthorRole = "system"
	AuthorRoleResolver AuthorRole = "resolver"
	// Legacy tags, only produced when synthesizing old response lists.
	AuthorRoleAdmin    AuthorRole = "admin"
	AuthorRoleCustomer AuthorRole = "customer"
)

// CommentEvent tags what produced an audit comment. Empty on trails written
// before the tag existed.
type CommentEvent string

const (
	CommentEventManual       CommentEvent = "manual"
	CommentEventStatusChange CommentEvent = "status_change"
	CommentEventAssignment   CommentEvent = "assignment"
	CommentEventResolution   CommentEvent = "resolution"
)

// Comment is one entry in a ticket's audit trail.
type Comment struct {
	Message      string       `json:"message" bson:"message"`
	Timestamp    Timestamp    `json:"timestamp" bson:"timestamp"`
	AuthorEmail  string       `json:"authorEmail" bson:"authorEmail"`
	AuthorName   string       `json:"authorName" bson:"authorName"`
	AuthorRole   AuthorRole   `json:"authorRole" bson:"authorRole"`
	EventType    CommentEvent `json:"eventType,omitempty" bson:"eventType,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty" bson:"attachments,omitempty"`
	LastEditedAt *Timestamp   `json:"lastEditedAt,omitempty" bson:"lastEditedAt,omitempty"`
	LastEditedBy string       `json:"lastEditedBy,omitempty" bson:"lastEditedBy,omitempty"`
}

// Edited reports whether the comment carries edit provenance.
func (c Comment) Edited() bool {
	return c.LastEditedAt != nil && c.LastEditedAt.IsSet()
}

// LegacyResponse is the shape of entries in the pre-comments adminResponses and
// customerResponses lists.
type LegacyResponse struct {
	Message     string       `json:"message" bson:"message"`
	Timestamp   Timestamp    `json:"timestamp" bson:"timestamp"`
	AuthorEmail string       `json:"authorEmail,omitempty" bson:"authorEmail,omitempty"`
	AuthorName  string       `json:"authorName,omitempty" bson:"authorName,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty" bson:"attachments,omitempty"`
}

func (r LegacyResponse) toComment(role AuthorRole) Comment {
	return Comment{
		Message:     r.Message,
		Timestamp:   r.Timestamp,
		AuthorEmail: r.AuthorEmail,
		AuthorName:  r.AuthorName,
		AuthorRole:  role,
		Attachments: r.Attachments,
	}
}
