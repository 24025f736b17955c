package domain

import (
	"slices"
	"time"
)

// Identity is a registered account.
type Identity struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	PasswordHash  string // argon2id PHC, or bcrypt for imported accounts
	Roles         []Role
	Profile       Profile
	MFAEnabled    bool
	MFASecret     *string // base32 TOTP secret, set while MFA is enabled or enrollment is pending
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the optional public detail shown next to a user's posts.
type Profile struct {
	FirstName string
	LastName  string
	Bio       string
	AvatarURL string
}

// HasRole reports whether the identity holds r.
func (i *Identity) HasRole(r Role) bool {
	return slices.Contains(i.Roles, r)
}

// RequiresMFA reports whether login must present a TOTP code. Only admins
// with MFA enabled are challenged.
func (i *Identity) RequiresMFA() bool {
	return i.HasRole(RoleAdmin) && i.MFAEnabled
}

// PendingMFASecret returns the stored secret, or "" if none.
func (i *Identity) PendingMFASecret() string {
	if i.MFASecret == nil {
		return ""
	}
	return *i.MFASecret
}

// View returns the public projection of the identity.
func (i *Identity) View() IdentityView {
	return IdentityView{
		ID:            i.ID,
		Username:      i.Username,
		Email:         i.Email,
		EmailVerified: i.EmailVerified,
		Roles:         slices.Clone(i.Roles),
		Profile:       i.Profile,
		MFAEnabled:    i.MFAEnabled,
	}
}

// IdentityView is safe to hand to clients: no hash, no secret.
type IdentityView struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	Roles         []Role
	Profile       Profile
	MFAEnabled    bool
}

// IdentityUpdate describes a partial update. Nil/empty fields are left alone.
// Password is only rehashed when PasswordChanged is set, so an update that
// round-trips an identity never double-hashes.
// A changed email drops EmailVerified unless the update sets it too.
type IdentityUpdate struct {
	Email           *string
	EmailVerified   *bool
	Roles           []Role   // nil = unchanged
	Profile         *Profile // replaces the whole profile
	Password        string
	PasswordChanged bool
}

// Credentials are what a user presents at login.
type Credentials struct {
	Username string
	Password string
	MFACode  string // optional
}
