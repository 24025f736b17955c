package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestLogin_ProfileAndRefresh(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	ctx := context.Background()

	bob := s.seed(t, "bob")

	resp, err := s.client.Login(ctx, authsdk.LoginRequest{Username: "bob", Password: testPassword})
	require.NoError(t, err)
	require.False(t, resp.RequireMFA)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.Equal(t, bob.ID, resp.User.ID)
	require.Equal(t, []string{"user"}, resp.User.Roles)

	sess := s.client.NewSessionFromTokens(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn)
	me, err := sess.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "bob", me.Username)
	require.Equal(t, "bob@example.com", me.Email)

	pair, err := s.client.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	// an access token is not a refresh token
	_, err = s.client.Refresh(ctx, resp.AccessToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	s.seed(t, "bob")

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"wrong password", `{"username":"bob","password":"wrong-password"}`, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials},
		{"unknown user", `{"username":"nobody","password":"wrong-password"}`, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials},
		{"missing password", `{"username":"bob"}`, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
		{"unknown field", `{"username":"bob","password":"x","extra":1}`, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
		{"not json", `username=bob`, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			require.Contains(t, readBody(t, resp), `"error":"`+tt.code+`"`)
		})
	}
}

func TestAdminMFAFlow(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	ctx := context.Background()

	s.seed(t, "alice", domain.RoleAdmin)
	sess := s.login(t, "alice")

	setup, err := sess.SetupMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	require.Contains(t, setup.QRCodeURL, "data:image/png;base64,")

	// pending enrollment does not change login yet
	_, err = s.client.AuthenticateWithPassword(ctx, "alice", testPassword, "")
	require.NoError(t, err)

	err = sess.VerifyMFA(ctx, "000000")
	require.ErrorIs(t, err, authsdk.ErrMFAVerificationFailed)
	require.NotErrorIs(t, err, authsdk.ErrInvalidMFACode)

	code, err := s.totp.CodeAt(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, sess.VerifyMFA(ctx, code))

	// second setup is refused while enabled
	_, err = sess.SetupMFA(ctx)
	require.ErrorIs(t, err, authsdk.ErrMFAAlreadyEnabled)

	challenge, err := s.client.Login(ctx, authsdk.LoginRequest{Username: "alice", Password: testPassword})
	require.NoError(t, err)
	require.True(t, challenge.RequireMFA)
	require.Equal(t, mfaRequiredMessage, challenge.Message)
	require.Empty(t, challenge.AccessToken)
	require.Nil(t, challenge.User)

	_, err = s.client.AuthenticateWithPassword(ctx, "alice", testPassword, "")
	require.ErrorIs(t, err, authsdk.ErrMFARequired)

	_, err = s.client.AuthenticateWithPassword(ctx, "alice", testPassword, "000000")
	require.ErrorIs(t, err, authsdk.ErrInvalidMFACode)

	code, err = s.totp.CodeAt(setup.Secret, time.Now())
	require.NoError(t, err)
	stepped, err := s.client.AuthenticateWithPassword(ctx, "alice", testPassword, code)
	require.NoError(t, err)

	msg, err := stepped.AdminCheck(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Message)

	require.NoError(t, stepped.DisableMFA(ctx))
	_, err = s.client.AuthenticateWithPassword(ctx, "alice", testPassword, "")
	require.NoError(t, err)
}

func TestGuardedEndpointStatuses(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})

	s.seed(t, "bob")
	s.seed(t, "ed", domain.RoleEditor)
	user := s.login(t, "bob")
	editor := s.login(t, "ed")

	t.Run("missing token", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/admin", "", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("refresh token as bearer", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/profile", user.RefreshToken(), "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong role", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/admin", user.AccessToken(), "")
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Contains(t, readBody(t, resp), authsdk.ErrorCodeInsufficientRole)
	})

	t.Run("editor may read a user but not list", func(t *testing.T) {
		list, err := editor.ListUsers(context.Background())
		require.ErrorIs(t, err, authsdk.ErrInsufficientRole)
		require.Nil(t, list)

		me, err := user.Profile(context.Background())
		require.NoError(t, err)

		got, err := editor.GetUser(context.Background(), me.ID)
		require.NoError(t, err)
		require.Equal(t, "bob", got.Username)
	})

	t.Run("signed-in endpoints accept any role", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/profile", user.AccessToken(), "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	ctx := context.Background()

	created, err := s.client.Register(ctx, authsdk.CreateUserRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"user"}, created.Roles)

	_, err = s.client.Register(ctx, authsdk.CreateUserRequest{Username: "bob", Email: "x@example.com", Password: testPassword})
	require.ErrorIs(t, err, authsdk.ErrConflict)

	_, err = s.client.Register(ctx, authsdk.CreateUserRequest{Username: "bobby", Email: "BOB@example.com", Password: testPassword})
	require.ErrorIs(t, err, authsdk.ErrConflict)

	_, err = s.client.Register(ctx, authsdk.CreateUserRequest{Username: "x", Email: "x@example.com", Password: "short"})
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	_, err = s.client.Register(ctx, authsdk.CreateUserRequest{Username: "x", Email: "x@example.com", Password: testPassword, Roles: []string{"root"}})
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	t.Run("elevated roles need an admin", func(t *testing.T) {
		body := `{"username":"mallory","email":"m@example.com","password":"` + testPassword + `","roles":["admin"]}`

		resp := s.do(t, http.MethodPost, "/api/v1/users", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		bob := s.login(t, "bob")
		resp = s.do(t, http.MethodPost, "/api/v1/users", bob.AccessToken(), body)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Contains(t, readBody(t, resp), authsdk.ErrorCodeInsufficientRole)

		resp = s.do(t, http.MethodPost, "/api/v1/users", "garbage", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		s.seed(t, "root", domain.RoleAdmin)
		admin := s.login(t, "root")
		resp = s.do(t, http.MethodPost, "/api/v1/users", admin.AccessToken(), body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	})
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	ctx := context.Background()

	s.seed(t, "root", domain.RoleAdmin)
	bob := s.seed(t, "bob")
	admin := s.login(t, "root")

	all, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "root", all[0].Username)

	email := "robert@example.com"
	updated, err := admin.UpdateUser(ctx, bob.ID, authsdk.UpdateUserRequest{
		Email: &email,
		Roles: []string{"user", "editor"},
	})
	require.NoError(t, err)
	require.Equal(t, email, updated.Email)
	require.Equal(t, []string{"user", "editor"}, updated.Roles)

	// refresh picks up the new roles
	sess := s.login(t, "bob")
	pair, err := s.client.Refresh(ctx, sess.RefreshToken())
	require.NoError(t, err)
	resp := s.do(t, http.MethodGet, "/api/v1/users/"+bob.ID, pair.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	newPassword := "brand-new-password"
	_, err = admin.UpdateUser(ctx, bob.ID, authsdk.UpdateUserRequest{Password: &newPassword})
	require.NoError(t, err)
	_, err = s.client.AuthenticateWithPassword(ctx, "bob", newPassword, "")
	require.NoError(t, err)

	require.NoError(t, admin.DeleteUser(ctx, bob.ID))
	_, err = admin.GetUser(ctx, bob.ID)
	require.ErrorIs(t, err, authsdk.ErrNotFound)
	require.ErrorIs(t, admin.DeleteUser(ctx, bob.ID), authsdk.ErrNotFound)

	// refresh for a deleted identity fails
	_, err = s.client.Refresh(ctx, sess.RefreshToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	resp = s.do(t, http.MethodGet, "/api/v1/users/not-an-id", admin.AccessToken(), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserProfile(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{})
	ctx := context.Background()

	created, err := s.client.Register(ctx, authsdk.CreateUserRequest{
		Username: "fox",
		Email:    "fox@example.com",
		Password: testPassword,
		Profile:  &authsdk.UserProfile{FirstName: "Fox", LastName: "Mulder"},
	})
	require.NoError(t, err)
	require.Equal(t, "Mulder", created.Profile.LastName)
	require.False(t, created.IsEmailVerified)

	_, err = s.client.Register(ctx, authsdk.CreateUserRequest{
		Username: "krycek",
		Email:    "krycek@example.com",
		Password: testPassword,
		Profile:  &authsdk.UserProfile{AvatarURL: "ftp://example.com/k.png"},
	})
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)

	s.seed(t, "root", domain.RoleAdmin)
	admin := s.login(t, "root")

	verified := true
	profile := authsdk.UserProfile{FirstName: "Fox", Bio: "I want to believe", AvatarURL: "https://example.com/fox.png"}
	updated, err := admin.UpdateUser(ctx, created.ID, authsdk.UpdateUserRequest{
		IsEmailVerified: &verified,
		Profile:         &profile,
	})
	require.NoError(t, err)
	require.True(t, updated.IsEmailVerified)
	require.Equal(t, profile, updated.Profile)

	got, err := admin.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, profile, got.Profile)
	require.True(t, got.IsEmailVerified)

	// changing the address clears verification
	email := "fox@example.org"
	updated, err = admin.UpdateUser(ctx, created.ID, authsdk.UpdateUserRequest{Email: &email})
	require.NoError(t, err)
	require.False(t, updated.IsEmailVerified)
	require.Equal(t, profile, updated.Profile)
}

func TestRegistrationRateLimit(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Hour, Burst: 2})

	body := `{"username":"x","email":"x@example.com","password":"short"}`
	for range 2 {
		resp := s.do(t, http.MethodPost, "/api/v1/users", "", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp := s.do(t, http.MethodPost, "/api/v1/users", "", body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// health is not limited
	resp = s.do(t, http.MethodGet, "/livez", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAndRefreshAreNotThrottled(t *testing.T) {
	s := newTestServer(t, httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Hour, Burst: 2})
	ctx := context.Background()

	s.seed(t, "alice", domain.RoleAdmin)
	sess := s.login(t, "alice")
	setup, err := sess.SetupMFA(ctx)
	require.NoError(t, err)
	code, err := s.totp.CodeAt(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, sess.VerifyMFA(ctx, code))

	body := `{"username":"alice","password":"` + testPassword + `","mfaToken":"000000"}`
	for i := range 12 {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
		require.Contains(t, readBody(t, resp), `"error":"`+authsdk.ErrorCodeInvalidMFACode+`"`)
	}

	for range 5 {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"garbage"}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}
