package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenpair/internal/dbx"
	"github.com/google/uuid"
)

const (
	insertRevokedSQL = `INSERT INTO deactivated_token (id, keep_until)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	existsRevokedSQL = `SELECT EXISTS (SELECT 1 FROM deactivated_token WHERE id = $1)`

	purgeRevokedSQL = `DELETE FROM deactivated_token WHERE keep_until < $1`
)

// PostgresLedger stores revoked ids in the deactivated_token table. The
// primary key on id gives per-key atomic inserts.
type PostgresLedger struct {
	db      dbx.DBTX
	timeout time.Duration
}

// NewPostgresLedger returns a ledger over db. Each statement is bounded by
// timeout when it is positive.
func NewPostgresLedger(db dbx.DBTX, timeout time.Duration) *PostgresLedger {
	return &PostgresLedger{db: db, timeout: timeout}
}

// Exists reports whether id has been revoked.
func (l *PostgresLedger) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := dbx.WithTimeout(ctx, l.timeout)
	defer cancel()

	var exists bool
	if err := l.db.QueryRowContext(ctx, existsRevokedSQL, id.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists, nil
}

// Insert records id until keepUntil. Conflicting inserts are ignored by the
// database so duplicate logouts both succeed.
func (l *PostgresLedger) Insert(ctx context.Context, id uuid.UUID, keepUntil time.Time) error {
	ctx, cancel := dbx.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, insertRevokedSQL, id.String(), keepUntil.UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Purge deletes records whose keepUntil is before the given instant and
// returns how many were removed.
func (l *PostgresLedger) Purge(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := dbx.WithTimeout(ctx, l.timeout)
	defer cancel()

	res, err := l.db.ExecContext(ctx, purgeRevokedSQL, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
