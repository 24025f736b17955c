package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// refreshSkew renews the access token slightly before it really expires.
const refreshSkew = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func expiryFrom(expiresIn int) time.Time {
	if expiresIn <= 0 {
		// unknown lifetime, let the server tell us when it expires
		return time.Now().Add(24 * time.Hour)
	}
	return time.Now().Add(time.Duration(expiresIn)*time.Second - refreshSkew)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", errors.New("authsdk: access token expired and no refresh token available")
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.expiresAt = expiryFrom(pair.ExpiresIn)

	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) call(ctx context.Context, method, path string, body, out any, expectedStatus int) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.call(ctx, method, s.client.api(path), token, body, out, expectedStatus)
}

// Profile returns the signed-in user.
func (s *Session) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := s.call(ctx, http.MethodGet, "/auth/profile", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminCheck calls the admin-only check endpoint.
func (s *Session) AdminCheck(ctx context.Context) (*MessageResponse, error) {
	var out MessageResponse
	if err := s.call(ctx, http.MethodGet, "/auth/admin", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetupMFA starts TOTP enrollment. MFA is not active until VerifyMFA succeeds.
func (s *Session) SetupMFA(ctx context.Context) (*MFASetupResponse, error) {
	var out MFASetupResponse
	if err := s.call(ctx, http.MethodPost, "/auth/mfa/setup", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA confirms enrollment with a code from the authenticator app.
func (s *Session) VerifyMFA(ctx context.Context, code string) error {
	return s.call(ctx, http.MethodPost, "/auth/mfa/verify", MFAVerifyRequest{Token: code}, nil, http.StatusOK)
}

// DisableMFA turns MFA off and discards the secret.
func (s *Session) DisableMFA(ctx context.Context) error {
	return s.call(ctx, http.MethodPost, "/auth/mfa/disable", nil, nil, http.StatusOK)
}

// ListUsers returns every user. Requires the admin role.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.call(ctx, http.MethodGet, "/users", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one user. Requires the admin or editor role.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := s.call(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser patches a user. Requires the admin role.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	var out User
	if err := s.call(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user. Requires the admin role.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	return s.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}
