package core

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	RoleDoctor     = "doctor"
	RoleAdmin      = "admin"
	RoleResearcher = "researcher"
)

// Roles is the set of roles an account may hold.
type Roles []string

// DefaultRoles returns the built-in role set.
func DefaultRoles() Roles {
	return Roles{RoleDoctor, RoleAdmin, RoleResearcher}
}

// Has reports whether role is a member of the set.
func (r Roles) Has(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// Rule is the ozzo-validation rule accepting only members of the set.
func (r Roles) Rule() validation.Rule {
	values := make([]interface{}, len(r))
	for i, role := range r {
		values[i] = role
	}
	return validation.In(values...).Error("must be one of: " + strings.Join(r, ", "))
}

// HasAnyRole reports whether the user's role is in required. An empty required
// set admits every user.
func HasAnyRole(u *User, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	return Roles(required).Has(u.Role)
}

// DefaultAvatar is assigned at registration when none is provided.
func DefaultAvatar(role string) string {
	return "/avatars/" + role + ".png"
}
