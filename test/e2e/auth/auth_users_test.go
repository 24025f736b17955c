//go:build e2e

package auth_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRegistrationConflicts checks duplicate usernames and emails.
func TestRegistrationConflicts(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	registerUser(t, client, "taken")

	_, err := client.Register(t.Context(), authsdk.CreateUserRequest{
		Username: "taken",
		Email:    "other@example.com",
		Password: userPassword,
	})
	assertAPIError(t, err, authsdk.ErrConflict, "duplicate username")

	_, err = client.Register(t.Context(), authsdk.CreateUserRequest{
		Username: "other",
		Email:    "TAKEN@example.com",
		Password: userPassword,
	})
	assertAPIError(t, err, authsdk.ErrConflict, "duplicate email")

	_, err = client.Register(t.Context(), authsdk.CreateUserRequest{
		Username: "shorty",
		Email:    "shorty@example.com",
		Password: "short",
	})
	assertStatus(t, err, http.StatusBadRequest, "short password")
}

// TestRegistrationCannotSelfAssignRoles checks that elevated roles need an admin.
func TestRegistrationCannotSelfAssignRoles(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Register(t.Context(), authsdk.CreateUserRequest{
		Username: "sneaky",
		Email:    "sneaky@example.com",
		Password: userPassword,
		Roles:    []string{"admin"},
	})
	assertAPIError(t, err, authsdk.ErrInvalidToken, "self-assigned admin")

	_, session := registerUser(t, client, "plain")
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, baseURL+"/api/v1/users",
		strings.NewReader(`{"username":"sneaky","email":"sneaky@example.com","password":"`+userPassword+`","roles":["editor"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken())

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusForbidden, res.StatusCode, "non-admin assigning roles")
}

// TestAdminManagesUsers walks list, get, update and delete as the admin.
func TestAdminManagesUsers(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	admin := loginAdmin(t, client)
	user, userSession := registerUser(t, client, "managed")

	users, err := admin.ListUsers(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 2)

	got, err := admin.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "managed", got.Username)

	email := "editor@example.com"
	updated, err := admin.UpdateUser(t.Context(), user.ID, authsdk.UpdateUserRequest{
		Email: &email,
		Roles: []string{"editor", "user"},
	})
	require.NoError(t, err)
	require.Equal(t, email, updated.Email)
	require.ElementsMatch(t, []string{"editor", "user"}, updated.Roles)

	// The old access token still carries the old roles; a refresh picks up the new ones.
	_, err = userSession.GetUser(t.Context(), user.ID)
	assertAPIError(t, err, authsdk.ErrInsufficientRole, "stale roles")

	pair, err := client.Refresh(t.Context(), userSession.RefreshToken())
	require.NoError(t, err)
	editor := client.NewSessionFromTokens(pair.AccessToken, pair.RefreshToken, pair.ExpiresIn)
	_, err = editor.GetUser(t.Context(), user.ID)
	require.NoError(t, err)

	_, err = editor.ListUsers(t.Context())
	assertAPIError(t, err, authsdk.ErrInsufficientRole, "editor listing users")

	require.NoError(t, admin.DeleteUser(t.Context(), user.ID))

	_, err = admin.GetUser(t.Context(), user.ID)
	assertAPIError(t, err, authsdk.ErrNotFound, "deleted user")

	_, err = client.Refresh(t.Context(), pair.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized, "refresh after delete")
}

// TestAdminPasswordReset sets a new password and checks both logins.
func TestAdminPasswordReset(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	admin := loginAdmin(t, client)
	user, _ := registerUser(t, client, "forgetful")

	newPassword := "Fresh123!secure"
	_, err := admin.UpdateUser(t.Context(), user.ID, authsdk.UpdateUserRequest{Password: &newPassword})
	require.NoError(t, err)

	_, err = client.AuthenticateWithPassword(t.Context(), "forgetful", userPassword, "")
	assertAPIError(t, err, authsdk.ErrInvalidCredentials, "old password")

	_, err = client.AuthenticateWithPassword(t.Context(), "forgetful", newPassword, "")
	require.NoError(t, err)
}
