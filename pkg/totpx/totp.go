// Package totpx generates and checks RFC 6238 time-based one-time passwords
// for MFA enrollment and login step-up.
package totpx

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the raw secret length in bytes (32 base32 characters).
	SecretSize = 20
	// Period is the time step in seconds.
	Period = 30
	// Skew is the number of steps accepted either side of the current one.
	Skew = 1

	qrSize = 256
)

// Enrollment is what a user needs to register the secret with an
// authenticator app.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
	// QRCode is a data:image/png;base64 URL encoding ProvisioningURI.
	QRCode string
}

// Provider is stateless apart from its configuration and is safe for
// concurrent use.
type Provider struct {
	Issuer string
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// NewProvider returns a Provider labelling secrets with issuer.
func NewProvider(issuer string) *Provider {
	return &Provider{Issuer: issuer, Now: time.Now}
}

func (p *Provider) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Provider) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret creates a fresh secret for account.
func (p *Provider) GenerateSecret(account string) (Enrollment, error) {
	if strings.TrimSpace(account) == "" {
		return Enrollment{}, errors.New("totp account name is empty")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: account,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := qrDataURL(key)
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCode:          qr,
	}, nil
}

// VerifyCode reports whether code is valid for secret at the current time.
// Malformed codes and secrets are simply invalid.
func (p *Provider) VerifyCode(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, p.now().UTC(), p.validateOpts())
	return err == nil && ok
}

// CodeAt returns the code for secret at t. Used by tests and tooling.
func (p *Provider) CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, p.validateOpts())
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
