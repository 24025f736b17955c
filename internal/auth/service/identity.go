package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 64
	MaxNameLength     = 100
	MaxBioLength      = 1000
)

// RegisterRequest is the input to IdentityService.Register.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Roles    []domain.Role // empty means domain.DefaultRoles
	Profile  domain.Profile
}

// SeedAdmin configures the first administrator created on an empty store.
type SeedAdmin struct {
	Username string
	Email    string
	Password string // generated when empty
}

// IdentityService manages accounts: registration, admin maintenance and the
// first-admin seed.
type IdentityService struct {
	Store  store.Store
	Hasher PasswordHasher
}

// Register creates a new identity. Username and email must both be unused.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (domain.IdentityView, error) {
	l := slogx.FromContext(ctx)

	username, err := validateUsername(req.Username)
	if err != nil {
		return domain.IdentityView{}, err
	}
	email, err := validateEmail(req.Email)
	if err != nil {
		return domain.IdentityView{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return domain.IdentityView{}, err
	}
	profile, err := validateProfile(req.Profile)
	if err != nil {
		return domain.IdentityView{}, err
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = domain.DefaultRoles
	}

	hash, err := s.Hasher.HashPassword(ctx, req.Password)
	if err != nil {
		return domain.IdentityView{}, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := domain.Identity{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		Profile:      profile,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := checkAvailable(ctx, tx.Identities(), identity); err != nil {
			return err
		}
		return tx.Identities().Create(ctx, identity)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.IdentityView{}, ErrConflict
		}
		if errors.Is(err, ErrConflict) {
			l.Info("registration rejected", slog.String("username", username), slog.Any("error", err))
			return domain.IdentityView{}, err
		}
		return domain.IdentityView{}, fmt.Errorf("failed to create identity: %w", err)
	}

	l.Info("identity registered",
		slog.String("user_id", identity.ID),
		slog.Any("roles", domain.RoleStrings(identity.Roles)),
	)
	return identity.View(), nil
}

// Get returns one identity.
func (s *IdentityService) Get(ctx context.Context, id string) (domain.IdentityView, error) {
	identity, err := s.Store.Identities().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.IdentityView{}, ErrNotFound
	}
	if err != nil {
		return domain.IdentityView{}, fmt.Errorf("failed to load identity: %w", err)
	}
	return identity.View(), nil
}

// List returns every identity, oldest first.
func (s *IdentityService) List(ctx context.Context) ([]domain.IdentityView, error) {
	all, err := s.Store.Identities().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	out := make([]domain.IdentityView, len(all))
	for i := range all {
		out[i] = all[i].View()
	}
	return out, nil
}

// Update applies upd to the identity. The stored hash is only replaced when
// upd.PasswordChanged is set.
func (s *IdentityService) Update(ctx context.Context, id string, upd domain.IdentityUpdate) (domain.IdentityView, error) {
	l := slogx.FromContext(ctx)

	var email string
	if upd.Email != nil {
		var err error
		if email, err = validateEmail(*upd.Email); err != nil {
			return domain.IdentityView{}, err
		}
	}
	if upd.Roles != nil && len(upd.Roles) == 0 {
		return domain.IdentityView{}, invalidRequest("roles must not be empty")
	}
	var profile domain.Profile
	if upd.Profile != nil {
		var err error
		if profile, err = validateProfile(*upd.Profile); err != nil {
			return domain.IdentityView{}, err
		}
	}

	var newHash string
	if upd.PasswordChanged {
		if err := validatePassword(upd.Password); err != nil {
			return domain.IdentityView{}, err
		}
		hash, err := s.Hasher.HashPassword(ctx, upd.Password)
		if err != nil {
			return domain.IdentityView{}, fmt.Errorf("failed to hash password: %w", err)
		}
		newHash = hash
	}

	var updated domain.Identity
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		repo := tx.Identities()

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if upd.Email != nil && !strings.EqualFold(current.Email, email) {
			if _, err := repo.GetByEmail(ctx, email); err == nil {
				return ErrEmailTaken
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			current.Email = email
			current.EmailVerified = false
		}
		if upd.EmailVerified != nil {
			current.EmailVerified = *upd.EmailVerified
		}
		if upd.Profile != nil {
			current.Profile = profile
		}
		if upd.Roles != nil {
			current.Roles = upd.Roles
		}
		if newHash != "" {
			current.PasswordHash = newHash
		}

		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.IdentityView{}, ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.IdentityView{}, ErrEmailTaken
	case errors.Is(err, ErrConflict):
		return domain.IdentityView{}, err
	case err != nil:
		return domain.IdentityView{}, fmt.Errorf("failed to update identity: %w", err)
	}

	l.Info("identity updated",
		slog.String("user_id", updated.ID),
		slog.Bool("password_changed", newHash != ""),
	)
	return updated.View(), nil
}

// Delete removes the identity. Tokens already issued to it remain valid
// until expiry but can no longer be refreshed.
func (s *IdentityService) Delete(ctx context.Context, id string) error {
	err := s.Store.Identities().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	slogx.FromContext(ctx).Info("identity deleted", slog.String("user_id", id))
	return nil
}

// SeedAdmin creates the first administrator when the store holds no
// identities. It returns the password used, which is generated when cfg has
// none, and false when the store was already populated.
func (s *IdentityService) SeedAdmin(ctx context.Context, cfg SeedAdmin) (string, bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Identities().IsEmpty(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to check store: %w", err)
	}
	if !empty {
		l.Debug("admin seed skipped, identities already exist")
		return "", false, nil
	}

	password := cfg.Password
	if password == "" {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return "", false, fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	view, err := s.Register(ctx, RegisterRequest{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: password,
		Roles:    []domain.Role{domain.RoleAdmin, domain.RoleUser},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to seed admin: %w", err)
	}

	l.Info("seeded admin identity", slog.String("user_id", view.ID), slog.String("username", view.Username))
	return password, true, nil
}

func checkAvailable(ctx context.Context, repo store.Identities, identity domain.Identity) error {
	if _, err := repo.GetByUsername(ctx, identity.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := repo.GetByEmail(ctx, identity.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", invalidRequest("username is required")
	}
	if len(username) > MaxUsernameLength {
		return "", invalidRequest("username must be at most %d characters", MaxUsernameLength)
	}
	if strings.ContainsFunc(username, unicode.IsSpace) {
		return "", invalidRequest("username must not contain spaces")
	}
	return username, nil
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidRequest("email is not a valid address")
	}
	return email, nil
}

// validateProfile trims every field. An avatar, when set, must be an
// absolute http(s) URL.
func validateProfile(p domain.Profile) (domain.Profile, error) {
	p = domain.Profile{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Bio:       strings.TrimSpace(p.Bio),
		AvatarURL: strings.TrimSpace(p.AvatarURL),
	}
	if len(p.FirstName) > MaxNameLength || len(p.LastName) > MaxNameLength {
		return p, invalidRequest("names must be at most %d characters", MaxNameLength)
	}
	if len(p.Bio) > MaxBioLength {
		return p, invalidRequest("bio must be at most %d characters", MaxBioLength)
	}
	if p.AvatarURL != "" {
		u, err := url.Parse(p.AvatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return p, invalidRequest("avatarUrl must be an http or https URL")
		}
	}
	return p, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalidRequest("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
