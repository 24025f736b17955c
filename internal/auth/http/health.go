package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/httpx"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"

	// readyzSubject is signed into the throwaway token used to exercise
	// the signing key. It is never a real identity id.
	readyzSubject = "readyz-check"
)

var errSignerMissing = errors.New("no signing key configured")

func health(status string, startTime time.Time, version string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Version: version,
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness check
//	@Description	Always 200 while the process is serving requests
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, health(statusOK, startTime, version))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Checks the database connection and that the signing key can mint and verify a token
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	tokens *service.TokenIssuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: checkResult(st.Ping(r.Context())),
			Signer:   checkResult(signerCheck(tokens)),
		}

		status, code := statusOK, http.StatusOK
		if checks.Database != statusOK || checks.Signer != statusOK {
			status, code = statusDegraded, http.StatusServiceUnavailable
		}

		resp := health(status, startTime, version)
		resp.Checks = checks
		httpx.WriteJSON(w, code, resp)
	}
}

func checkResult(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return statusOK
}

// signerCheck round-trips a token through the issuer.
func signerCheck(tokens *service.TokenIssuer) error {
	if tokens == nil || tokens.Signer == nil {
		return errSignerMissing
	}
	tok, err := tokens.IssueAccessToken(domain.TokenClaims{SubjectID: readyzSubject})
	if err != nil {
		return err
	}
	_, err = tokens.Verify(tok)
	return err
}
