package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

// CtxKeyUserID holds the subject of the verified access token.
const CtxKeyUserID ctxKey = "user_id"

// WithUserID attaches the authenticated subject to ctx for downstream
// handlers.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

// UserIDFromContext returns the authenticated subject, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively (RFC 6750 §2.1).
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WriteBearerError writes an RFC 6750 error challenge with a JSON body.
// code is "invalid_token" (401) or "insufficient_role" (403).
func WriteBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteError(w, status, code, desc)
}
