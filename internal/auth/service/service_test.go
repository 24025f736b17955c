package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
	"github.com/aussiebroadwan/quill/pkg/totpx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "quill-test"
	testPassword = "correct-horse-battery"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock      *testClock
	store      *sqlite.Store
	hasher     *cryptox.Hasher
	totp       *totpx.Provider
	tokens     *TokenIssuer
	auth       *AuthService
	mfa        *MFAService
	identities *IdentityService
	guard      *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Unix(1700000000, 0).UTC()}

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	st.WithClock(clock.Now)

	signer, err := jwtx.NewHMACSigner(testKey, testIssuer)
	require.NoError(t, err)
	signer.WithClock(clock.Now)

	hasher := cryptox.NewHasher("test-pepper", 2)
	provider := &totpx.Provider{Issuer: "Quill", Now: clock.Now}
	tokens := &TokenIssuer{Signer: signer, AccessTTL: time.Hour, Now: clock.Now}

	return &fixture{
		clock:      clock,
		store:      st,
		hasher:     hasher,
		totp:       provider,
		tokens:     tokens,
		auth:       &AuthService{Store: st, Hasher: hasher, TOTP: provider, Tokens: tokens},
		mfa:        &MFAService{Store: st, TOTP: provider},
		identities: &IdentityService{Store: st, Hasher: hasher},
		guard:      &Guard{Tokens: tokens},
	}
}

func (f *fixture) register(t *testing.T, username string, roles ...domain.Role) domain.IdentityView {
	t.Helper()
	view, err := f.identities.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Roles:    roles,
	})
	require.NoError(t, err)
	return view
}

// enableMFA walks enrollment and confirmation and returns the secret.
func (f *fixture) enableMFA(t *testing.T, id string) string {
	t.Helper()
	ctx := context.Background()

	enrollment, err := f.mfa.Enroll(ctx, id)
	require.NoError(t, err)

	code, err := f.totp.CodeAt(enrollment.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.mfa.Confirm(ctx, id, code))
	return enrollment.Secret
}
