package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db  dbtx
	now func() time.Time
}

type identityRow struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	PasswordHash  string
	Roles         string
	FirstName     string
	LastName      string
	Bio           string
	AvatarUrl     string
	MfaEnabled    bool
	MfaSecret     sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const identityColumns = `id, username, email, email_verified, password_hash, roles, first_name, last_name, bio, avatar_url, mfa_enabled, mfa_secret, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(s scanner) (identityRow, error) {
	var r identityRow
	err := s.Scan(
		&r.ID,
		&r.Username,
		&r.Email,
		&r.EmailVerified,
		&r.PasswordHash,
		&r.Roles,
		&r.FirstName,
		&r.LastName,
		&r.Bio,
		&r.AvatarUrl,
		&r.MfaEnabled,
		&r.MfaSecret,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const getIdentityByID = `SELECT ` + identityColumns + ` FROM identities WHERE id = ?`

func (q *queries) GetIdentityByID(ctx context.Context, id string) (identityRow, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByID, id))
}

const getIdentityByUsername = `SELECT ` + identityColumns + ` FROM identities WHERE username = ?`

func (q *queries) GetIdentityByUsername(ctx context.Context, username string) (identityRow, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByUsername, username))
}

const getIdentityByEmail = `SELECT ` + identityColumns + ` FROM identities WHERE email = ?`

func (q *queries) GetIdentityByEmail(ctx context.Context, email string) (identityRow, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByEmail, email))
}

const listIdentities = `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at, id`

func (q *queries) ListIdentities(ctx context.Context) ([]identityRow, error) {
	rows, err := q.db.QueryContext(ctx, listIdentities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identityRow
	for rows.Next() {
		r, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const createIdentity = `INSERT INTO identities (` + identityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *queries) CreateIdentity(ctx context.Context, r identityRow) error {
	now := q.now()
	_, err := q.db.ExecContext(ctx, createIdentity,
		r.ID,
		r.Username,
		r.Email,
		r.EmailVerified,
		r.PasswordHash,
		r.Roles,
		r.FirstName,
		r.LastName,
		r.Bio,
		r.AvatarUrl,
		r.MfaEnabled,
		r.MfaSecret,
		now,
		now,
	)
	return err
}

const updateIdentity = `UPDATE identities
SET email = ?, email_verified = ?, password_hash = ?, roles = ?,
    first_name = ?, last_name = ?, bio = ?, avatar_url = ?, updated_at = ?
WHERE id = ?`

func (q *queries) UpdateIdentity(ctx context.Context, r identityRow) (int64, error) {
	return q.exec(ctx, updateIdentity,
		r.Email,
		r.EmailVerified,
		r.PasswordHash,
		r.Roles,
		r.FirstName,
		r.LastName,
		r.Bio,
		r.AvatarUrl,
		q.now(),
		r.ID,
	)
}

const updateIdentityMFASecret = `UPDATE identities SET mfa_secret = ?, updated_at = ? WHERE id = ?`

func (q *queries) UpdateIdentityMFASecret(ctx context.Context, id string, secret sql.NullString) (int64, error) {
	return q.exec(ctx, updateIdentityMFASecret, secret, q.now(), id)
}

const setIdentityMFAEnabled = `UPDATE identities SET mfa_enabled = ?, updated_at = ? WHERE id = ?`

func (q *queries) SetIdentityMFAEnabled(ctx context.Context, id string, enabled bool) (int64, error) {
	return q.exec(ctx, setIdentityMFAEnabled, enabled, q.now(), id)
}

const clearIdentityMFA = `UPDATE identities SET mfa_enabled = 0, mfa_secret = NULL, updated_at = ? WHERE id = ?`

func (q *queries) ClearIdentityMFA(ctx context.Context, id string) (int64, error) {
	return q.exec(ctx, clearIdentityMFA, q.now(), id)
}

const deleteIdentity = `DELETE FROM identities WHERE id = ?`

func (q *queries) DeleteIdentity(ctx context.Context, id string) (int64, error) {
	return q.exec(ctx, deleteIdentity, id)
}

const countIdentities = `SELECT COUNT(*) FROM identities`

func (q *queries) CountIdentities(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countIdentities).Scan(&n)
	return n, err
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
