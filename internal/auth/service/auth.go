package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/aussiebroadwan/quill/pkg/totpx"
)

// PasswordHasher hashes and verifies passwords. VerifyPassword returns
// cryptox.ErrMismatch on a wrong password and any other error for a broken
// hash or a failed primitive.
type PasswordHasher interface {
	HashPassword(ctx context.Context, password string) (string, error)
	VerifyPassword(ctx context.Context, password, encodedHash string) error
}

// TOTPProvider generates and checks time-based one-time codes.
type TOTPProvider interface {
	GenerateSecret(account string) (totpx.Enrollment, error)
	VerifyCode(secret, code string) bool
}

// LoginResult is either a challenge (MFARequired, nothing else set) or a
// signed-in user with tokens.
type LoginResult = domain.LoginResult

// AuthService runs the credential check, the MFA step-up and token refresh.
// No state is kept between a challenge and its retry; the client resubmits
// the full credentials with the code.
type AuthService struct {
	Store  store.Store
	Hasher PasswordHasher
	TOTP   TOTPProvider
	Tokens *TokenIssuer

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// Login authenticates creds. An unknown username and a wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	l := slogx.FromContext(ctx)

	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.Store.Identities().GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// burn the same hashing cost as a real check
		if err := s.verifyDummy(ctx, creds.Password); err != nil {
			return nil, err
		}
		l.Info("login failed", slog.String("username", username), slog.String("reason", "unknown user"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if err := s.Hasher.VerifyPassword(ctx, creds.Password, identity.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			l.Info("login failed", slog.String("user_id", identity.ID), slog.String("reason", "wrong password"))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	if cryptox.NeedsRehash(identity.PasswordHash) {
		s.upgradeHash(ctx, &identity, creds.Password)
	}

	if identity.RequiresMFA() {
		if creds.MFACode == "" {
			l.Info("MFA challenge issued", slog.String("user_id", identity.ID))
			return &LoginResult{MFARequired: true}, nil
		}
		if !s.TOTP.VerifyCode(identity.PendingMFASecret(), creds.MFACode) {
			l.Warn("login failed", slog.String("user_id", identity.ID), slog.String("reason", "invalid MFA code"))
			return nil, ErrInvalidMFACode
		}
	}

	pair, err := s.Tokens.IssuePair(identity)
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded", slog.String("user_id", identity.ID))
	return &LoginResult{User: identity.View(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair carrying the identity's
// current roles. The presented token stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.Verify(refreshToken)
	if err != nil {
		l.Info("refresh rejected", slog.Any("error", err))
		return domain.TokenPair{}, ErrInvalidToken
	}
	if claims.Kind != domain.TokenKindRefresh {
		l.Info("refresh rejected", slog.String("reason", "not a refresh token"))
		return domain.TokenPair{}, ErrInvalidToken
	}

	identity, err := s.Store.Identities().GetByID(ctx, claims.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		l.Info("refresh rejected", slog.String("user_id", claims.SubjectID), slog.String("reason", "identity gone"))
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to load identity: %w", err)
	}

	return s.Tokens.IssuePair(identity)
}

func (s *AuthService) verifyDummy(ctx context.Context, password string) error {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = s.Hasher.HashPassword(context.WithoutCancel(ctx), "quill-dummy-password")
	})
	if s.dummyErr != nil {
		return fmt.Errorf("failed to prepare dummy hash: %w", s.dummyErr)
	}

	err := s.Hasher.VerifyPassword(ctx, password, s.dummyHash)
	if err != nil && !errors.Is(err, cryptox.ErrMismatch) {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

// upgradeHash replaces a legacy bcrypt hash after a successful login. A
// failure leaves the old hash in place.
func (s *AuthService) upgradeHash(ctx context.Context, identity *domain.Identity, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.HashPassword(ctx, password)
	if err != nil {
		l.Warn("failed to rehash legacy password", slog.String("user_id", identity.ID), slog.Any("error", err))
		return
	}

	updated := *identity
	updated.PasswordHash = hash
	if err := s.Store.Identities().Update(ctx, updated); err != nil {
		l.Warn("failed to store rehashed password", slog.String("user_id", identity.ID), slog.Any("error", err))
		return
	}
	identity.PasswordHash = hash
	l.Info("upgraded legacy password hash", slog.String("user_id", identity.ID))
}
