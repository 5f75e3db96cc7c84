package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/migrations"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-seeding"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

var dbURL string

func main() {
	_ = godotenv.Load()
	utils.InitLogger("rentalsctl")

	rootCmd := &cobra.Command{
		Use:           "rentalsctl",
		Short:         "Operational tooling for the rentals database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dbURL == "" {
				return errors.New("database url required: pass --db-url or set DB_URL")
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", os.Getenv("DB_URL"), "Postgres connection string")

	rootCmd.AddCommand(migrateCmd(), checkCmd(), seedCmd(), exportCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrations.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}, &cobra.Command{
		Use:   "down [n]",
		Short: "Roll back the last n migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				n = v
			}
			return withMigrator(func(m *migrations.Migrator) error {
				if err := m.Down(n); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}, &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrations.Migrator) error {
				return printVersion(cmd, m)
			})
		},
	})
	return cmd
}

func withMigrator(fn func(m *migrations.Migrator) error) error {
	m, err := migrations.New(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *migrations.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("schema version %d (dirty)\n", v)
		return nil
	}
	cmd.Printf("schema version %d\n", v)
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every table the service needs exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("pgx", dbURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrations.Verify(cmd.Context(), db); err != nil {
				return err
			}
			cmd.Printf("schema ok: %d tables present\n", len(migrations.RequiredTables))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo profiles and listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return seeding.SeedAll(
				cmd.Context(),
				repositories.NewProfileRepository(pool),
				repositories.NewPropertyRepository(pool),
			)
		},
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}
