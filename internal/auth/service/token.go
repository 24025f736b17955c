package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
)

// TokenSigner signs and verifies tokens with a single key.
type TokenSigner interface {
	jwtx.Signer
	jwtx.Verifier
	Issuer() string
}

// TokenIssuer mints and verifies the access/refresh pair. It does not enforce
// the token kind on Verify; callers decide which kind they accept.
type TokenIssuer struct {
	Signer    TokenSigner
	AccessTTL time.Duration    // 0 means jwtx.DefaultAccessTokenTTL
	Now       func() time.Time // nil means time.Now
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TokenIssuer) accessTTL() time.Duration {
	if t.AccessTTL > 0 {
		return t.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// IssueAccessToken signs claims as an access token with the configured TTL.
func (t *TokenIssuer) IssueAccessToken(claims domain.TokenClaims) (string, error) {
	return t.issue(claims, jwtx.KindAccess, t.accessTTL())
}

// IssueRefreshToken signs claims as a refresh token. The refresh lifetime is
// fixed and independent of the access TTL.
func (t *TokenIssuer) IssueRefreshToken(claims domain.TokenClaims) (string, error) {
	return t.issue(claims, jwtx.KindRefresh, jwtx.RefreshTokenTTL)
}

// IssuePair mints both tokens for identity using its current roles.
func (t *TokenIssuer) IssuePair(identity domain.Identity) (domain.TokenPair, error) {
	claims := domain.TokenClaims{
		SubjectID: identity.ID,
		Username:  identity.Username,
		Roles:     identity.Roles,
	}

	access, err := t.IssueAccessToken(claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := t.IssueRefreshToken(claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    t.accessTTL(),
	}, nil
}

// Verify checks signature, issuer and expiry. Every failure is reported as
// ErrInvalidToken; the cause is kept in the message for logs only.
func (t *TokenIssuer) Verify(token string) (domain.TokenClaims, error) {
	if token == "" {
		return domain.TokenClaims{}, ErrInvalidToken
	}

	c, err := t.Signer.Verify(token)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	kind := domain.TokenKind(c.Kind)
	if kind != domain.TokenKindAccess && kind != domain.TokenKindRefresh {
		return domain.TokenClaims{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, c.Kind)
	}

	out := domain.TokenClaims{
		SubjectID: c.Subject,
		Username:  c.Username,
		Roles:     domain.RolesFromStrings(c.Roles),
		Kind:      kind,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

func (t *TokenIssuer) issue(claims domain.TokenClaims, kind jwtx.Kind, ttl time.Duration) (string, error) {
	if claims.SubjectID == "" {
		return "", errors.New("token subject is required")
	}

	c := jwtx.NewClaims(
		claims.SubjectID,
		claims.Username,
		domain.RoleStrings(claims.Roles),
		kind,
		ttl,
		t.Signer.Issuer(),
		t.now(),
	)
	return t.Signer.Sign(c)
}
