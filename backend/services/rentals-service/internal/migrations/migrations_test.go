package migrations

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
)

func tableRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"table_name"})
	for _, n := range names {
		rows.AddRow(n)
	}
	return rows
}

func TestVerify(t *testing.T) {
	t.Run("all tables present", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
			WillReturnRows(tableRows(append([]string{"schema_migrations"}, RequiredTables...)...))

		require.NoError(t, Verify(context.Background(), db))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tables are listed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
			WillReturnRows(tableRows("profiles", "properties"))

		err = Verify(context.Background(), db)
		require.ErrorIs(t, err, ErrMissingTables)
		assert.Contains(t, err.Error(), "applications")
		assert.Contains(t, err.Error(), "stripe_events")
		assert.NotContains(t, err.Error(), "profiles,")
	})

	t.Run("query failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT table_name").WillReturnError(errors.New("connection reset"))

		err = Verify(context.Background(), db)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingTables)
	})
}

func TestEmbeddedFilesPairUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestSchemaCreatesRequiredTables(t *testing.T) {
	raw, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)
	ddl := string(raw)
	for _, table := range RequiredTables {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, ddl, "applications_one_active_per_tenant")
	assert.Contains(t, ddl, "leases_application_id_key")
}

func TestPaymentGuardsMigration(t *testing.T) {
	up, err := fs.ReadFile(files, "sql/000002_payment_guards.up.sql")
	require.NoError(t, err)
	ddl := string(up)
	assert.Contains(t, ddl, "CREATE UNIQUE INDEX IF NOT EXISTS "+repositories.OpenApplicationPaymentConstraint)
	assert.Contains(t, ddl, "WHERE kind = 'application' AND status IN ('requires_payment', 'processing', 'failed')")
	assert.Contains(t, ddl, "stripe_refund_id")
	assert.Contains(t, ddl, "'refunded'")

	down, err := fs.ReadFile(files, "sql/000002_payment_guards.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP INDEX IF EXISTS "+repositories.OpenApplicationPaymentConstraint)

	base, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(base), repositories.LeasePeriodPaymentConstraint)
}

func TestDriverURL(t *testing.T) {
	assert.Equal(t, "pgx://u:p@db:5432/rentals", driverURL("postgres://u:p@db:5432/rentals"))
	assert.Equal(t, "pgx://u:p@db/rentals?sslmode=require", driverURL("postgresql://u:p@db/rentals?sslmode=require"))
	assert.Equal(t, "pgx://already", driverURL("pgx://already"))
}
