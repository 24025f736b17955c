package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Role is one of the fixed platform roles.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// AllRoles in display order.
var AllRoles = []Role{RoleUser, RoleEditor, RoleAdmin}

// DefaultRoles are assigned when registration does not name any.
var DefaultRoles = []Role{RoleUser}

// ParseRole validates s as a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(AllRoles, r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParseRoles validates and de-duplicates roles, preserving order.
func ParseRoles(in []string) ([]Role, error) {
	out := make([]Role, 0, len(in))
	for _, s := range in {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RoleStrings converts roles for serialisation into tokens and JSON.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RolesFromStrings converts without validation. Unknown values are kept so a
// guard simply never matches them.
func RolesFromStrings(in []string) []Role {
	out := make([]Role, len(in))
	for i, s := range in {
		out[i] = Role(s)
	}
	return out
}

// HasAnyRole reports whether have and want intersect.
func HasAnyRole(have, want []Role) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
