package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACKeyLength is the shortest key accepted for HS256 (256 bits).
const MinHMACKeyLength = 32

// HMACSigner signs and verifies HS256 tokens with one shared key. It
// implements both Signer and Verifier.
type HMACSigner struct {
	key    []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewHMACSigner returns a signer for key. Tokens it verifies must carry
// issuer in "iss" unless issuer is empty.
func NewHMACSigner(key []byte, issuer string) (*HMACSigner, error) {
	if len(key) < MinHMACKeyLength {
		return nil, ErrWeakKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &HMACSigner{key: k, issuer: issuer, now: time.Now}, nil
}

// WithClock replaces the verification clock, mostly useful in tests.
func (s *HMACSigner) WithClock(now func() time.Time) *HMACSigner {
	s.now = now
	return s
}

// WithLeeway allows small clock skew when validating exp/nbf/iat.
func (s *HMACSigner) WithLeeway(d time.Duration) *HMACSigner {
	s.leeway = d
	return s
}

func (s *HMACSigner) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Issuer is the value written to and expected in "iss".
func (s *HMACSigner) Issuer() string { return s.issuer }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HMACSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Verify validates the JWT string and returns its parsed Claims.
func (s *HMACSigner) Verify(tokenStr string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, errors.New("jwtx: invalid token claims")
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}
