package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// writeServiceError maps a service error onto its wire error. Anything that
// is not a known sentinel is logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErrorFor(r, err).WriteError(w)
}

func apiErrorFor(r *http.Request, err error) *authsdk.APIError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrInvalidMFACode):
		return authsdk.ErrInvalidMFACode
	case errors.Is(err, service.ErrInvalidToken):
		return authsdk.ErrInvalidToken
	case errors.Is(err, service.ErrUsernameTaken):
		return authsdk.ErrConflict.WithDescription("username already taken")
	case errors.Is(err, service.ErrEmailTaken):
		return authsdk.ErrConflict.WithDescription("email already in use")
	case errors.Is(err, service.ErrConflict):
		return authsdk.ErrConflict
	case errors.Is(err, service.ErrNotFound):
		return authsdk.ErrNotFound
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		return authsdk.ErrMFAAlreadyEnabled
	case errors.Is(err, service.ErrInvalidRequest):
		desc := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
		return authsdk.ErrInvalidRequest.WithDescription(desc)
	}

	slogx.FromContext(r.Context()).Error("request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	return authsdk.ErrServerError
}

// badRequest reports a malformed body or a missing field.
func badRequest(w http.ResponseWriter, desc string) {
	authsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
}
