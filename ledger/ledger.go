// Package ledger provides revocation ledger backends: durable sets of
// revoked token ids, each retained until the revoked token would have
// expired anyway.
//
// Every backend honors the same contract:
//
//   - Insert is idempotent. Inserting an id twice, concurrently or not, is
//     not an error and leaves the same state as inserting it once.
//   - Exists observes every Insert that completed before it began.
//   - Storage failures are reported as ErrUnavailable and never leave a
//     half-written record behind.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("revocation ledger unavailable")

// Ledger is the contract shared by all backends.
type Ledger interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Insert(ctx context.Context, id uuid.UUID, keepUntil time.Time) error
}

// Purger is implemented by backends that need explicit garbage collection
// of records whose keepUntil has passed.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}
