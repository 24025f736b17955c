package service

import "github.com/aussiebroadwan/quill/internal/auth/domain"

// Decision is the outcome of an authorization check.
type Decision int

const (
	Permit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return "unknown"
	}
}

// Policy declares who may call an operation. The zero Policy is public.
// Authenticated alone admits any signed-in caller; a non-empty Roles set
// admits callers holding at least one of them.
type Policy struct {
	Authenticated bool
	Roles         []domain.Role
}

// Public reports whether the policy admits anonymous callers.
func (p Policy) Public() bool {
	return !p.Authenticated && len(p.Roles) == 0
}

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (domain.TokenClaims, error)
}

// Guard decides whether a bearer token satisfies a role requirement. It has
// no side effects and keeps no state.
type Guard struct {
	Tokens TokenVerifier
}

// Authorize permits when required is empty, or when the access token carries
// at least one of the required roles.
func (g *Guard) Authorize(token string, required []domain.Role) Decision {
	d, _ := g.Check(token, Policy{Roles: required})
	return d
}

// Check evaluates p against token. Claims are returned whenever the token
// itself verified. Refresh tokens never authenticate a request.
func (g *Guard) Check(token string, p Policy) (Decision, domain.TokenClaims) {
	if p.Public() {
		return Permit, domain.TokenClaims{}
	}

	claims, err := g.Tokens.Verify(token)
	if err != nil || claims.Kind != domain.TokenKindAccess {
		return DenyUnauthenticated, domain.TokenClaims{}
	}

	if len(p.Roles) > 0 && !domain.HasAnyRole(claims.Roles, p.Roles) {
		return DenyForbidden, claims
	}
	return Permit, claims
}
