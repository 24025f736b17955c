package domain

import "time"

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	SubjectID string
	Username  string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	Kind      TokenKind
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// LoginResult is either a challenge (MFARequired, nothing else set) or a
// successful login carrying the user and tokens.
type LoginResult struct {
	MFARequired bool
	User        IdentityView
	Tokens      TokenPair
}
