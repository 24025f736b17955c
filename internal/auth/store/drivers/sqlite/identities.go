package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/store"
)

type identitiesRepo struct {
	q *queries
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByID(ctx, id)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByUsername(ctx context.Context, username string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByUsername(ctx, username)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByEmail(ctx, email)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	row := toRow(i)
	row.Username = i.Username
	row.MfaEnabled = i.MFAEnabled
	row.MfaSecret = mapOptionalString(i.MFASecret)
	return mapConstraint(r.q.CreateIdentity(ctx, row))
}

func (r *identitiesRepo) Update(ctx context.Context, i domain.Identity) error {
	n, err := r.q.UpdateIdentity(ctx, toRow(i))
	return affected(n, mapConstraint(err))
}

func (r *identitiesRepo) UpdateMFASecret(ctx context.Context, id string, secret string) error {
	n, err := r.q.UpdateIdentityMFASecret(ctx, id, sql.NullString{String: secret, Valid: secret != ""})
	return affected(n, err)
}

func (r *identitiesRepo) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	n, err := r.q.SetIdentityMFAEnabled(ctx, id, enabled)
	return affected(n, err)
}

func (r *identitiesRepo) ClearMFA(ctx context.Context, id string) error {
	n, err := r.q.ClearIdentityMFA(ctx, id)
	return affected(n, err)
}

func (r *identitiesRepo) List(ctx context.Context) ([]domain.Identity, error) {
	rows, err := r.q.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Identity, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapIdentity(row))
	}
	return out, nil
}

func (r *identitiesRepo) Delete(ctx context.Context, id string) error {
	n, err := r.q.DeleteIdentity(ctx, id)
	return affected(n, err)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountIdentities(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// affected reports ErrNotFound for single-row statements that touched nothing.
func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// toRow maps the columns Update may change. MFA state has its own
// statements.
func toRow(i domain.Identity) identityRow {
	return identityRow{
		ID:            i.ID,
		Email:         i.Email,
		EmailVerified: i.EmailVerified,
		PasswordHash:  i.PasswordHash,
		Roles:         joinRoles(i.Roles),
		FirstName:     i.Profile.FirstName,
		LastName:      i.Profile.LastName,
		Bio:           i.Profile.Bio,
		AvatarUrl:     i.Profile.AvatarURL,
	}
}

func mapIdentity(row identityRow) domain.Identity {
	return domain.Identity{
		ID:            row.ID,
		Username:      row.Username,
		Email:         row.Email,
		EmailVerified: row.EmailVerified,
		PasswordHash:  row.PasswordHash,
		Roles:         splitRoles(row.Roles),
		Profile: domain.Profile{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Bio:       row.Bio,
			AvatarURL: row.AvatarUrl,
		},
		MFAEnabled: row.MfaEnabled,
		MFASecret:  mapNullStringPtr(row.MfaSecret),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
