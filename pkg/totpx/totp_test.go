package totpx_test

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/pkg/totpx"
	"github.com/stretchr/testify/require"
)

const fixedSecret = "JBSWY3DPEHPK3PXP"

func fixedProvider(t time.Time) *totpx.Provider {
	p := totpx.NewProvider("Quill")
	p.Now = func() time.Time { return t }
	return p
}

func TestGenerateSecret(t *testing.T) {
	p := totpx.NewProvider("Quill")

	enr, err := p.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.Len(t, enr.Secret, 32)

	u, err := url.Parse(enr.ProvisioningURI)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Equal(t, enr.Secret, u.Query().Get("secret"))
	require.Equal(t, "Quill", u.Query().Get("issuer"))
	require.Contains(t, u.Path, "alice@example.com")

	require.True(t, strings.HasPrefix(enr.QRCode, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(enr.QRCode, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, "\x89PNG", string(png[:4]))

	other, err := p.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, enr.Secret, other.Secret)
}

func TestGenerateSecret_EmptyAccount(t *testing.T) {
	_, err := totpx.NewProvider("Quill").GenerateSecret("  ")
	require.Error(t, err)
}

func TestVerifyCode_Window(t *testing.T) {
	now := time.Unix(1700000010, 0).UTC()
	p := fixedProvider(now)

	tests := []struct {
		steps  int
		expect bool
	}{
		{-2, false},
		{-1, true},
		{0, true},
		{1, true},
		{2, false},
	}

	for _, tt := range tests {
		code, err := p.CodeAt(fixedSecret, now.Add(time.Duration(tt.steps)*totpx.Period*time.Second))
		require.NoError(t, err)
		require.Equal(t, tt.expect, p.VerifyCode(fixedSecret, code), "step offset %d", tt.steps)
	}
}

func TestVerifyCode_GeneratedSecretRoundTrip(t *testing.T) {
	now := time.Unix(1710000000, 0).UTC()
	p := fixedProvider(now)

	enr, err := p.GenerateSecret("bob")
	require.NoError(t, err)

	code, err := p.CodeAt(enr.Secret, now)
	require.NoError(t, err)
	require.True(t, p.VerifyCode(enr.Secret, code))
}

func TestVerifyCode_Rejects(t *testing.T) {
	p := fixedProvider(time.Unix(1700000010, 0).UTC())

	require.False(t, p.VerifyCode(fixedSecret, ""))
	require.False(t, p.VerifyCode(fixedSecret, "12345"))
	require.False(t, p.VerifyCode(fixedSecret, "abcdef"))
	require.False(t, p.VerifyCode("", "123456"))
	require.False(t, p.VerifyCode("not base32!", "123456"))
}
