package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// Operation names a guarded API operation.
type Operation string

const (
	OpLogin      Operation = "auth.login"
	OpRefresh    Operation = "auth.refresh"
	OpProfile    Operation = "auth.profile"
	OpAdminCheck Operation = "auth.admin"
	OpMFAEnroll  Operation = "mfa.enroll"
	OpMFAConfirm Operation = "mfa.confirm"
	OpMFADisable Operation = "mfa.disable"
	OpRegister   Operation = "users.register"
	OpListUsers  Operation = "users.list"
	OpGetUser    Operation = "users.get"
	OpUpdateUser Operation = "users.update"
	OpDeleteUser Operation = "users.delete"

	// OpAssignRoles applies on top of OpRegister when the new account asks
	// for any role beyond the default.
	OpAssignRoles Operation = "users.assign_roles"
)

var (
	signedIn  = service.Policy{Authenticated: true}
	adminOnly = service.Policy{Roles: []domain.Role{domain.RoleAdmin}}
)

// Policies is the single table of who may call what. Every registered route
// must have an entry; the router refuses to start otherwise.
var Policies = map[Operation]service.Policy{
	OpLogin:       {},
	OpRefresh:     {},
	OpProfile:     signedIn,
	OpAdminCheck:  adminOnly,
	OpMFAEnroll:   signedIn,
	OpMFAConfirm:  signedIn,
	OpMFADisable:  signedIn,
	OpRegister:    {},
	OpAssignRoles: adminOnly,
	OpListUsers:   adminOnly,
	OpGetUser:     {Roles: []domain.Role{domain.RoleAdmin, domain.RoleEditor}},
	OpUpdateUser:  adminOnly,
	OpDeleteUser:  adminOnly,
}

// authorize evaluates the policy of op before the handler runs.
func (r *Router) authorize(op Operation) httpx.Middleware {
	if _, ok := Policies[op]; !ok {
		panic("http: no policy registered for operation " + string(op))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx, ok := r.check(w, req, op)
			if !ok {
				return
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// check evaluates the policy of op for req. On denial the error response
// has been written and ok is false. Handlers call it directly only when the
// operation depends on the request body.
func (r *Router) check(w http.ResponseWriter, req *http.Request, op Operation) (ctx context.Context, ok bool) {
	ctx = req.Context()

	policy, found := Policies[op]
	if !found {
		panic("http: no policy registered for operation " + string(op))
	}
	if policy.Public() {
		return ctx, true
	}

	token, _ := httpx.BearerToken(req)
	decision, claims := r.Guard.Check(token, policy)

	l := slogx.FromContext(ctx)
	switch decision {
	case service.DenyUnauthenticated:
		l.Info("request denied", slog.String("operation", string(op)), slog.String("decision", decision.String()))
		authsdk.ErrInvalidToken.WriteError(w)
		return ctx, false
	case service.DenyForbidden:
		l.Warn("request denied",
			slog.String("operation", string(op)),
			slog.String("decision", decision.String()),
			slog.String("user_id", claims.SubjectID),
		)
		authsdk.ErrInsufficientRole.WriteError(w)
		return ctx, false
	}

	ctx = httpx.WithUserID(ctx, claims.SubjectID)
	ctx = slogx.WithUserID(ctx, claims.SubjectID)
	return ctx, true
}
