package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. Repositories hang off it so that a Tx exposes the same
// surface and nobody can start a transaction within a transaction.
type Store interface {
	Identities() Identities

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	Identities() Identities
}

// Identities persists accounts. Every mutation bumps updated_at and touches a
// single row; concurrent writers are last-write-wins.
type Identities interface {
	// GetByUsername is used during login. Usernames are matched exactly.
	GetByUsername(ctx context.Context, username string) (domain.Identity, error)

	// GetByEmail is used to report registration conflicts.
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)

	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// Create inserts a new identity (id is provided by the caller via ULID).
	// Returns ErrAlreadyExists on a username or email collision.
	Create(ctx context.Context, i domain.Identity) error

	// Update writes email, roles and password hash. MFA fields are only
	// changed through the dedicated methods below.
	Update(ctx context.Context, i domain.Identity) error

	// UpdateMFASecret stores a pending secret and leaves mfa_enabled alone.
	UpdateMFASecret(ctx context.Context, id string, secret string) error

	// SetMFAEnabled flips the MFA flag.
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error

	// ClearMFA removes the secret and disables MFA in one statement.
	ClearMFA(ctx context.Context, id string) error

	// List returns every identity ordered by creation (oldest first).
	List(ctx context.Context) ([]domain.Identity, error)

	Delete(ctx context.Context, id string) error

	// IsEmpty returns true if there are no identities.
	IsEmpty(ctx context.Context) (bool, error)
}
