package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

func TestWhereBuilderNumbersPlaceholders(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())

	w.add("city=?", "Miami")
	w.add("rent_cents BETWEEN ? AND ?", 100, 200)
	assert.Equal(t, " WHERE city=$1 AND rent_cents BETWEEN $2 AND $3", w.sql())
	assert.Equal(t, []any{"Miami", 100, 200}, w.args)

	suffix, args := w.page(20, 40)
	assert.Equal(t, " LIMIT $4 OFFSET $5", suffix)
	assert.Equal(t, []any{"Miami", 100, 200, 20, 40}, args)
	// page must not grow the builder's own args
	assert.Len(t, w.args, 3)
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: ActiveApplicationConstraint}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, ActiveApplicationConstraint))
	assert.False(t, IsUniqueViolation(wrapped, "some_other_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestToStringsAndNonNil(t *testing.T) {
	assert.Equal(t, []string{"submitted", "approved"},
		toStrings([]models.ApplicationStatus{models.ApplicationSubmitted, models.ApplicationApproved}))
	assert.NotNil(t, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}
