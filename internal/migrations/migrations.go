// Package migrations embeds the schema of the users directory and the
// revocation ledger and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"
)

//go:embed sql/*.sql
var FS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "sql"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedUser is one demo account written by Seed.
type SeedUser struct {
	Email       string
	Authorities []string
}

// DemoUsers are the accounts a fresh development database starts with.
// They all share the password "password".
var DemoUsers = []SeedUser{
	{Email: "i.ivanov@test.com", Authorities: []string{"USER"}},
	{Email: "o.solomatin@test.com", Authorities: []string{"USER"}},
	{Email: "v.sergeev@test.com", Authorities: []string{"ADMIN"}},
}

const seedUserSQL = `INSERT INTO users (user_email, user_password, user_authorities)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_email) DO NOTHING`

// Seed inserts users with a bcrypt hash of password. Existing rows are
// left alone.
func Seed(ctx context.Context, db *sql.DB, password string, users []SeedUser) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if _, err := tx.ExecContext(ctx, seedUserSQL, email, string(hash), strings.Join(u.Authorities, ",")); err != nil {
			return fmt.Errorf("seed %s: %w", email, err)
		}
	}
	return tx.Commit()
}
