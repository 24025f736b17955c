package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// MFAService drives TOTP enrollment for a signed-in identity. A secret is
// pending until a code generated from it is confirmed.
type MFAService struct {
	Store store.Store
	TOTP  TOTPProvider
}

// Enroll generates and stores a new pending secret. Any previous pending
// secret is replaced.
func (s *MFAService) Enroll(ctx context.Context, identityID string) (domain.MFAEnrollment, error) {
	l := slogx.FromContext(ctx)

	identity, err := s.load(ctx, identityID)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if identity.MFAEnabled {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	enrollment, err := s.TOTP.GenerateSecret(identity.Email)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	if err := s.Store.Identities().UpdateMFASecret(ctx, identity.ID, enrollment.Secret); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	l.Info("MFA enrollment started", slog.String("user_id", identity.ID))
	return domain.MFAEnrollment{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
		QRCode:          enrollment.QRCode,
	}, nil
}

// Confirm checks code against the pending secret and enables MFA on success.
// A wrong code keeps the pending secret so the user can retry.
func (s *MFAService) Confirm(ctx context.Context, identityID, code string) error {
	l := slogx.FromContext(ctx)

	identity, err := s.load(ctx, identityID)
	if err != nil {
		return err
	}

	secret := identity.PendingMFASecret()
	if secret == "" || !s.TOTP.VerifyCode(secret, code) {
		l.Info("MFA confirmation failed", slog.String("user_id", identity.ID))
		return ErrInvalidMFACode
	}

	if err := s.Store.Identities().SetMFAEnabled(ctx, identity.ID, true); err != nil {
		return fmt.Errorf("failed to enable MFA: %w", err)
	}

	l.Info("MFA enabled", slog.String("user_id", identity.ID))
	return nil
}

// Disable clears the secret and the flag. No code is required.
func (s *MFAService) Disable(ctx context.Context, identityID string) error {
	err := s.Store.Identities().ClearMFA(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to disable MFA: %w", err)
	}

	slogx.FromContext(ctx).Info("MFA disabled", slog.String("user_id", identityID))
	return nil
}

func (s *MFAService) load(ctx context.Context, id string) (domain.Identity, error) {
	identity, err := s.Store.Identities().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}
	return identity, nil
}
