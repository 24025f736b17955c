package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
)

// InitSigner builds the HS256 signer from JWT_SECRET.
//
// Without a secret in dev or test a random key is generated. Tokens signed
// with it do not survive a restart, and other services sharing the secret
// cannot verify them.
func InitSigner(cfg Config, logger *slog.Logger) (*jwtx.HMACSigner, error) {
	key := []byte(cfg.JWTSecret)

	if len(key) == 0 {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is not set")
		}

		ephemeral, err := cryptox.GenerateToken(cryptox.KeySize256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		key = []byte(ephemeral)

		logger.Warn("JWT_SECRET not set, using an ephemeral signing key",
			slog.String("env", cfg.Env),
		)
	}

	signer, err := jwtx.NewHMACSigner(key, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	logger.Info("token signer ready",
		slog.String("alg", signer.Alg()),
		slog.String("issuer", signer.Issuer()),
	)
	return signer, nil
}
