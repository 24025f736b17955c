package service

import (
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestRegister_DefaultsAndView(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	view := f.register(t, "bob")
	require.NotEmpty(t, view.ID)
	require.Equal(t, "bob@example.com", view.Email)
	require.Equal(t, []domain.Role{domain.RoleUser}, view.Roles)
	require.False(t, view.MFAEnabled)

	stored, err := f.store.Identities().GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	require.NotEqual(t, testPassword, stored.PasswordHash)
	require.NoError(t, f.hasher.VerifyPassword(context.Background(), testPassword, stored.PasswordHash))
}

func TestRegister_Conflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "bob")

	_, err := f.identities.Register(ctx, RegisterRequest{Username: "bob", Email: "other@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.identities.Register(ctx, RegisterRequest{Username: "robert", Email: "BOB@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing username", RegisterRequest{Email: "a@example.com", Password: testPassword}},
		{"username with spaces", RegisterRequest{Username: "a b", Email: "a@example.com", Password: testPassword}},
		{"bad email", RegisterRequest{Username: "a", Email: "not-an-email", Password: testPassword}},
		{"display-name email", RegisterRequest{Username: "a", Email: "A <a@example.com>", Password: testPassword}},
		{"short password", RegisterRequest{Username: "a", Email: "a@example.com", Password: "short"}},
		{"relative avatar", RegisterRequest{Username: "a", Email: "a@example.com", Password: testPassword, Profile: domain.Profile{AvatarURL: "/me.png"}}},
		{"long bio", RegisterRequest{Username: "a", Email: "a@example.com", Password: testPassword, Profile: domain.Profile{Bio: strings.Repeat("x", MaxBioLength+1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.identities.Register(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestUpdate_PasswordOnlyWhenChanged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	bob := f.register(t, "bob")
	before, err := f.store.Identities().GetByID(ctx, bob.ID)
	require.NoError(t, err)

	// a password value without the flag is ignored
	email := "robert@example.com"
	view, err := f.identities.Update(ctx, bob.ID, domain.IdentityUpdate{Email: &email, Password: "ignored-password"})
	require.NoError(t, err)
	require.Equal(t, email, view.Email)

	after, err := f.store.Identities().GetByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, after.PasswordHash)

	_, err = f.identities.Update(ctx, bob.ID, domain.IdentityUpdate{Password: "new-password-1", PasswordChanged: true})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, domain.Credentials{Username: "bob", Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, domain.Credentials{Username: "bob", Password: "new-password-1"})
	require.NoError(t, err)
}

func TestUpdate_ProfileAndEmailVerification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.identities.Register(ctx, RegisterRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: testPassword,
		Profile:  domain.Profile{FirstName: "  Dana ", Bio: "writes things"},
	})
	require.NoError(t, err)
	require.Equal(t, "Dana", view.Profile.FirstName)
	require.False(t, view.EmailVerified)

	verified := true
	view, err = f.identities.Update(ctx, view.ID, domain.IdentityUpdate{EmailVerified: &verified})
	require.NoError(t, err)
	require.True(t, view.EmailVerified)
	require.Equal(t, "writes things", view.Profile.Bio, "profile untouched when absent")

	// a new address must be verified again
	email := "dana@example.org"
	view, err = f.identities.Update(ctx, view.ID, domain.IdentityUpdate{Email: &email})
	require.NoError(t, err)
	require.False(t, view.EmailVerified)

	profile := domain.Profile{LastName: "Scully", AvatarURL: "https://example.com/d.png"}
	view, err = f.identities.Update(ctx, view.ID, domain.IdentityUpdate{Profile: &profile})
	require.NoError(t, err)
	require.Equal(t, profile, view.Profile, "profile is replaced as a whole")

	stored, err := f.identities.Get(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, profile, stored.Profile)
}

func TestUpdate_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	bob := f.register(t, "bob")
	f.register(t, "carol")

	taken := "Carol@example.com"
	_, err := f.identities.Update(ctx, bob.ID, domain.IdentityUpdate{Email: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.identities.Update(ctx, bob.ID, domain.IdentityUpdate{Roles: []domain.Role{}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.identities.Update(ctx, bob.ID, domain.IdentityUpdate{Password: "short", PasswordChanged: true})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.identities.Update(ctx, "01HMISSING", domain.IdentityUpdate{Roles: []domain.Role{domain.RoleUser}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIdentity_GetListDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	got, err := f.identities.Get(ctx, carol.ID)
	require.NoError(t, err)
	require.Equal(t, "carol", got.Username)

	all, err := f.identities.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, f.identities.Delete(ctx, bob.ID))
	require.ErrorIs(t, f.identities.Delete(ctx, bob.ID), ErrNotFound)

	_, err = f.identities.Get(ctx, bob.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeedAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	password, created, err := f.identities.SeedAdmin(ctx, SeedAdmin{Username: "admin", Email: "admin@example.com"})
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, password, 16)

	res, err := f.auth.Login(ctx, domain.Credentials{Username: "admin", Password: password})
	require.NoError(t, err)
	require.Contains(t, res.User.Roles, domain.RoleAdmin)

	_, created, err = f.identities.SeedAdmin(ctx, SeedAdmin{Username: "other", Email: "other@example.com", Password: testPassword})
	require.NoError(t, err)
	require.False(t, created)
}
