package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_Lifetimes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	now := f.clock.Now()

	claims := domain.TokenClaims{SubjectID: "01HSUBJECT", Username: "bob", Roles: []domain.Role{domain.RoleUser}}

	access, err := f.tokens.IssueAccessToken(claims)
	require.NoError(t, err)
	got, err := f.tokens.Verify(access)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), got.ExpiresAt.UTC())
	require.Equal(t, now, got.IssuedAt.UTC())

	refresh, err := f.tokens.IssueRefreshToken(claims)
	require.NoError(t, err)
	got, err = f.tokens.Verify(refresh)
	require.NoError(t, err)
	require.Equal(t, now.Add(7*24*time.Hour), got.ExpiresAt.UTC())
	require.Equal(t, domain.TokenKindRefresh, got.Kind)
}

func TestTokenIssuer_DefaultAccessTTL(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	issuer := &TokenIssuer{Signer: f.tokens.Signer, Now: f.clock.Now}
	pair, err := issuer.IssuePair(domain.Identity{ID: "01HSUBJECT", Username: "bob"})
	require.NoError(t, err)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, pair.ExpiresIn)
}

func TestTokenIssuer_RefreshTTLIgnoresAccessSetting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	issuer := &TokenIssuer{Signer: f.tokens.Signer, AccessTTL: 5 * time.Minute, Now: f.clock.Now}
	pair, err := issuer.IssuePair(domain.Identity{ID: "01HSUBJECT", Username: "bob"})
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, pair.ExpiresIn)

	got, err := issuer.Verify(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(jwtx.RefreshTokenTTL), got.ExpiresAt.UTC())
}

func TestTokenIssuer_VerifyCollapsesFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	token, err := f.tokens.IssueAccessToken(domain.TokenClaims{SubjectID: "01HSUBJECT"})
	require.NoError(t, err)

	other, err := jwtx.NewHMACSigner([]byte("another-key-another-key-another!!"), testIssuer)
	require.NoError(t, err)
	foreign := &TokenIssuer{Signer: other}

	cases := map[string]func() (domain.TokenClaims, error){
		"empty":     func() (domain.TokenClaims, error) { return f.tokens.Verify("") },
		"garbage":   func() (domain.TokenClaims, error) { return f.tokens.Verify("not.a.jwt") },
		"wrong key": func() (domain.TokenClaims, error) { return foreign.Verify(token) },
		"tampered":  func() (domain.TokenClaims, error) { return f.tokens.Verify(token[:len(token)-2] + "xx") },
	}
	for name, verify := range cases {
		_, err := verify()
		require.ErrorIs(t, err, ErrInvalidToken, name)
	}

	f.clock.Advance(2 * time.Hour)
	_, err = f.tokens.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken, "after expiry")
}

func TestTokenIssuer_RequiresSubject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.tokens.IssueAccessToken(domain.TokenClaims{Username: "bob"})
	require.Error(t, err)
}
