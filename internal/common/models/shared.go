package models

import (
	"fmt"
	"strings"
)

type ContextKey string

const (
	ActorKey ContextKey = "actor"
)

// Role is the single role an actor holds when performing an action.
type Role string

const (
	RoleRequester Role = "REQUESTER"
	RoleReviewer  Role = "REVIEWER"
	RoleExecutor  Role = "EXECUTOR"
	RoleAdmin     Role = "ADMIN"
	RoleSystem    Role = "SYSTEM"
)

// UserRoles are the roles that can be assigned to a user or a template step.
var UserRoles = []Role{RoleRequester, RoleReviewer, RoleExecutor, RoleAdmin}

func (r Role) IsUserRole() bool {
	for _, ur := range UserRoles {
		if r == ur {
			return true
		}
	}
	return false
}

// ParseRole normalizes s and rejects anything that is not a user role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsUserRole() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Actor is the resolved identity performing an operation. It is copied by
// value into audit entries so history keeps the role held at the time.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

var SystemActor = Actor{ID: "system", Email: "SYSTEM", Role: RoleSystem}

func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
