package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the access token lifetime when none is configured.
	DefaultAccessTokenTTL = time.Hour

	// RefreshTokenTTL is fixed and not affected by the access token setting.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Kind separates access tokens from refresh tokens. Both are signed with the
// same key, so callers must check it before trusting a token for a purpose.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the claims carried by every token the auth service mints.
type Claims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user
	Username string `json:"username,omitempty"`

	// Roles at the time of issue, e.g. ["user","admin"]
	Roles []string `json:"roles,omitempty"`

	// Kind is "access" or "refresh"
	Kind Kind `json:"kind"`
}

// NewClaims builds minimally-correct claims.
func NewClaims(
	subject, username string,
	roles []string,
	kind Kind,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Roles:    slices.Clone(roles),
		Kind:     kind,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two
// tokens minted in the same second for the same user still differ.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
