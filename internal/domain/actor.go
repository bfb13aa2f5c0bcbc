package domain

import "strings"

// Role enumerates the dashboards a caller can act from.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleClient         Role = "client"
	RoleClientHead     Role = "client_head"
	RoleEmployee       Role = "employee"
	RoleProjectManager Role = "project_manager"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClient, RoleClientHead, RoleEmployee, RoleProjectManager:
		return true
	}
	return false
}

// IsResponder reports whether the role works tickets rather than raising them.
func (r Role) IsResponder() bool {
	return r == RoleAdmin || r == RoleEmployee || r == RoleProjectManager
}

// Actor is the authenticated caller performing an operation.
type Actor struct {
	Name  string
	Email string
	Role  Role
}

// DisplayName prefers the name and falls back to the email.
func (a Actor) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.Email
}

// AsAssignee converts the actor into an assignment target.
func (a Actor) AsAssignee() Assignee {
	return Assignee{Name: a.DisplayName(), Email: a.Email, Role: string(a.Role)}
}
