package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// fakeServer mimics the auth service closely enough to exercise the client.
func fakeServer(t *testing.T, refreshes *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		switch {
		case req.Password != "pw":
			authsdk.ErrInvalidCredentials.WriteError(w)
		case req.Username == "admin" && req.MFAToken == "":
			_ = json.NewEncoder(w).Encode(authsdk.LoginResponse{RequireMFA: true, Message: "MFA token required for admin login"})
		default:
			_ = json.NewEncoder(w).Encode(authsdk.LoginResponse{
				User:         &authsdk.User{ID: "1", Username: req.Username},
				AccessToken:  "expired-access",
				RefreshToken: "refresh-1",
				ExpiresIn:    1, // already inside the refresh skew
			})
		}
	})

	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(authsdk.TokenPairResponse{
			AccessToken:  "fresh-access",
			RefreshToken: "refresh-2",
			ExpiresIn:    3600,
		})
	})

	mux.HandleFunc("GET /api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.User{ID: "1", Username: "alice", Roles: []string{"user"}})
	})

	mux.HandleFunc("GET /api/v1/auth/admin", func(w http.ResponseWriter, r *http.Request) {
		authsdk.ErrInsufficientRole.WriteError(w)
	})

	mux.HandleFunc("DELETE /api/v1/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authsdk.HealthResponse{Status: "ok"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginAndAutoRefresh(t *testing.T) {
	var refreshes atomic.Int32
	srv := fakeServer(t, &refreshes)
	client := authsdk.NewSDKClient(srv.URL + "/")
	ctx := context.Background()

	session, err := client.AuthenticateWithPassword(ctx, "alice", "pw", "")
	require.NoError(t, err)

	profile, err := session.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, "refresh-2", session.RefreshToken())

	// second call reuses the refreshed token
	_, err = session.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshes.Load())

	require.NoError(t, session.DeleteUser(ctx, "01H"))
}

func TestClient_MFAChallenge(t *testing.T) {
	var refreshes atomic.Int32
	client := authsdk.NewSDKClient(fakeServer(t, &refreshes).URL)

	resp, err := client.Login(context.Background(), authsdk.LoginRequest{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	require.True(t, resp.RequireMFA)
	require.Empty(t, resp.AccessToken)

	_, err = client.AuthenticateWithPassword(context.Background(), "admin", "pw", "")
	require.ErrorIs(t, err, authsdk.ErrMFARequired)
}

func TestClient_TypedErrors(t *testing.T) {
	var refreshes atomic.Int32
	client := authsdk.NewSDKClient(fakeServer(t, &refreshes).URL)
	ctx := context.Background()

	_, err := client.Login(ctx, authsdk.LoginRequest{Username: "alice", Password: "nope"})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	session := client.NewSessionFromTokens("fresh-access", "", 3600)
	_, err = session.AdminCheck(ctx)
	require.ErrorIs(t, err, authsdk.ErrInsufficientRole)
	require.NotErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestClient_ExpiredWithoutRefreshToken(t *testing.T) {
	var refreshes atomic.Int32
	client := authsdk.NewSDKClient(fakeServer(t, &refreshes).URL)

	session := client.NewSessionFromTokens("stale", "", 1)
	_, err := session.Profile(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(0), refreshes.Load())
}

func TestClient_Liveness(t *testing.T) {
	var refreshes atomic.Int32
	client := authsdk.NewSDKClient(fakeServer(t, &refreshes).URL)

	health, err := client.GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestAPIError_WithDescription(t *testing.T) {
	err := authsdk.ErrConflict.WithDescription("username already exists")
	require.ErrorIs(t, err, authsdk.ErrConflict)
	require.Equal(t, "conflict: username already exists", err.Error())
	require.Equal(t, "username or email already exists", authsdk.ErrConflict.Description)
}
