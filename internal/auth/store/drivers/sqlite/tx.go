package sqlite

import (
	"database/sql"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
	q  *queries
}

func newTx(tx *sql.Tx, now func() time.Time) *txStore {
	return &txStore{
		tx: tx,
		q:  &queries{db: tx, now: now},
	}
}

func (t *txStore) Identities() store.Identities { return &identitiesRepo{q: t.q} }
