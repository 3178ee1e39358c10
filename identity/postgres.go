package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenpair/internal/dbx"
)

const lookupUserSQL = `SELECT user_email, user_password, user_authorities,
		acc_enabled, acc_non_expired, acc_non_locked, creds_non_expired
	FROM users
	WHERE user_email = $1`

// PostgresDirectory reads identities from the users table.
type PostgresDirectory struct {
	db      dbx.DBTX
	timeout time.Duration
}

func NewPostgresDirectory(db dbx.DBTX, timeout time.Duration) *PostgresDirectory {
	return &PostgresDirectory{db: db, timeout: timeout}
}

// Lookup fetches the identity registered for subject.
func (d *PostgresDirectory) Lookup(ctx context.Context, subject string) (Identity, error) {
	ctx, cancel := dbx.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		id          Identity
		authorities string
	)
	err := d.db.QueryRowContext(ctx, lookupUserSQL, NormalizeSubject(subject)).Scan(
		&id.Subject,
		&id.PasswordHash,
		&authorities,
		&id.Enabled,
		&id.AccountNonExpired,
		&id.AccountNonLocked,
		&id.CredentialsNonExpired,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	id.Roles = parseAuthorities(authorities)
	return id, nil
}

// parseAuthorities decodes the comma-separated authority column. Entries
// that are not a known role are skipped: the subject still authenticates
// and is refused by role checks (403) instead of every request failing as
// a directory outage.
func parseAuthorities(s string) []Role {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		if r, err := ParseRole(part); err == nil {
			roles = append(roles, r)
		}
	}
	return roles
}
