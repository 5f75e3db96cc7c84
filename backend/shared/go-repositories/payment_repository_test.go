package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// insertFailDB answers every QueryRow with a row whose Scan fails with err.
type insertFailDB struct {
	DB
	err error
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (d insertFailDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{d.err}
}

func TestPaymentCreateMapsUniqueIndexes(t *testing.T) {
	appID := uuid.New()
	p := &models.Payment{ID: uuid.New(), ApplicationID: &appID, Kind: models.PaymentKindApplication}

	for _, constraint := range []string{
		OpenApplicationPaymentConstraint,
		LeasePeriodPaymentConstraint,
		"payments_idempotency_key_key",
	} {
		repo := NewPaymentRepository(insertFailDB{err: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraint}})
		assert.ErrorIs(t, repo.Create(context.Background(), p), ErrDuplicate, constraint)
	}

	notNull := &pgconn.PgError{Code: "23502", ColumnName: "application_id"}
	err := NewPaymentRepository(insertFailDB{err: notNull}).Create(context.Background(), p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}
