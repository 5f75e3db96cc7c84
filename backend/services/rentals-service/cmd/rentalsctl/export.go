package main

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const exportPageSize = 200

var applicationCSVHeader = []string{
	"id",
	"property_id",
	"tenant_id",
	"status",
	"full_name",
	"email",
	"phone",
	"monthly_income_cents",
	"move_in_date",
	"occupants",
	"has_pets",
	"submitted_at",
	"decided_at",
	"row_version",
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as encrypted CSV",
	}

	var (
		passphrase string
		out        string
		statuses   []string
	)
	apps := &cobra.Command{
		Use:   "applications",
		Short: "Export rental applications (openssl aes-256-cbc, pbkdf2)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return errors.New("--passphrase is required")
			}
			filters := models.ApplicationFilters{}
			for _, s := range statuses {
				st := models.ApplicationStatus(s)
				if !models.ApplicationStatusMachine.Known(st) {
					return fmt.Errorf("unknown application status %q", s)
				}
				filters.Statuses = append(filters.Statuses, st)
			}

			encKey, err := base64.StdEncoding.DecodeString(os.Getenv("DB_ENCRYPTION_KEY_BASE64"))
			if err != nil {
				return fmt.Errorf("decode DB_ENCRYPTION_KEY_BASE64: %w", err)
			}

			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			repo := repositories.NewApplicationRepository(pool, encKey)

			var rows []*models.Application
			for offset := 0; ; offset += exportPageSize {
				filters.Limit, filters.Offset = exportPageSize, offset
				page, total, err := repo.List(cmd.Context(), filters)
				if err != nil {
					return fmt.Errorf("list applications: %w", err)
				}
				rows = append(rows, page...)
				if len(page) < exportPageSize || len(rows) >= total {
					break
				}
			}

			var buf bytes.Buffer
			if err := writeApplicationsCSV(&buf, rows); err != nil {
				return err
			}
			sealed, err := utils.EncryptOpenSSLSalted([]byte(passphrase), buf.String())
			if err != nil {
				return fmt.Errorf("encrypt export: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if _, err := fmt.Fprintln(w, sealed); err != nil {
				return err
			}
			utils.Logger.Infof("Exported %d applications", len(rows))
			return nil
		},
	}
	apps.Flags().StringVar(&passphrase, "passphrase", "", "passphrase for the encrypted output")
	apps.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	apps.Flags().StringSliceVar(&statuses, "status", nil, "only export these statuses (repeatable)")

	cmd.AddCommand(apps)
	return cmd
}

// writeApplicationsCSV never includes SSN digits.
func writeApplicationsCSV(w io.Writer, apps []*models.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(applicationCSVHeader); err != nil {
		return err
	}
	for _, a := range apps {
		decided := ""
		if a.DecidedAt != nil {
			decided = a.DecidedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			a.ID.String(),
			a.PropertyID.String(),
			a.TenantID.String(),
			string(a.Status),
			a.FullName,
			a.Email,
			a.Phone,
			strconv.FormatInt(a.MonthlyIncomeCents, 10),
			a.MoveInDate.Format("2006-01-02"),
			strconv.Itoa(a.Occupants),
			strconv.FormatBool(a.HasPets),
			a.SubmittedAt.UTC().Format(time.RFC3339),
			decided,
			strconv.FormatInt(a.RowVersion, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
