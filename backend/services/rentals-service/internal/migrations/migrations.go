// Package migrations owns the rentals schema. SQL files are embedded and
// applied with golang-migrate through the pgx driver.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

//go:embed sql/*.sql
var files embed.FS

// RequiredTables must exist for the service to start.
var RequiredTables = []string{
	"applications",
	"audit_logs",
	"documents",
	"error_logs",
	"inquiries",
	"leases",
	"maintenance_requests",
	"message_threads",
	"messages",
	"onboarding_states",
	"payments",
	"profiles",
	"properties",
	"saved_properties",
	"stripe_events",
}

// ErrMissingTables is wrapped by Verify.
var ErrMissingTables = errors.New("schema is missing tables")

// Migrator wraps migrate.Migrate with the embedded source.
type Migrator struct {
	m *migrate.Migrate
}

// New opens a migrator for a postgres:// or postgresql:// URL.
func New(dbURL string) (*Migrator, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("open migrate: %w", err)
	}
	m.Log = migrateLogger{}
	return &Migrator{m: m}, nil
}

// driverURL rewrites the scheme so golang-migrate picks its pgx driver.
func driverURL(dbURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx://" + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

// Up applies every pending migration. No change is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Down rolls back n migrations.
func (mg *Migrator) Down(n int) error {
	if n < 1 {
		return fmt.Errorf("down needs a positive step count, got %d", n)
	}
	if err := mg.m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version reports the applied version; 0 when nothing has run.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Verify checks that every required table exists in the public schema.
func Verify(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `
        SELECT table_name FROM information_schema.tables
        WHERE table_schema = 'public'
    `)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	var missing []string
	for _, t := range RequiredTables {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingTables, strings.Join(missing, ", "))
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	utils.Logger.Infof(strings.TrimSpace(format), v...)
}

func (migrateLogger) Verbose() bool { return false }
