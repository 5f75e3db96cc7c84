package main

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func TestWriteApplicationsCSV(t *testing.T) {
	decided := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	a := &models.Application{
		ID:                 uuid.New(),
		PropertyID:         uuid.New(),
		TenantID:           uuid.New(),
		Status:             models.ApplicationApproved,
		FullName:           "Doe, Jane",
		Email:              "jane@example.com",
		Phone:              "+13055550123",
		MonthlyIncomeCents: 900000,
		MoveInDate:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Occupants:          2,
		HasPets:            true,
		SSNLast4:           utils.Ptr("6789"),
		SubmittedAt:        time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		DecidedAt:          &decided,
	}
	a.RowVersion = 5

	var buf bytes.Buffer
	require.NoError(t, writeApplicationsCSV(&buf, []*models.Application{a}))
	assert.NotContains(t, buf.String(), "6789")

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, applicationCSVHeader, records[0])

	row := records[1]
	require.Len(t, row, len(applicationCSVHeader))
	assert.Equal(t, a.ID.String(), row[0])
	assert.Equal(t, "approved", row[3])
	assert.Equal(t, "Doe, Jane", row[4])
	assert.Equal(t, "900000", row[7])
	assert.Equal(t, "2026-04-01", row[8])
	assert.Equal(t, "true", row[10])
	assert.Equal(t, "2026-03-01T09:30:00Z", row[11])
	assert.Equal(t, "2026-03-02T15:00:00Z", row[12])
	assert.Equal(t, "5", row[13])
}

func TestWriteApplicationsCSVUndecided(t *testing.T) {
	a := &models.Application{ID: uuid.New(), Status: models.ApplicationSubmitted}

	var buf bytes.Buffer
	require.NoError(t, writeApplicationsCSV(&buf, []*models.Application{a}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "", records[1][12])
}

func TestExportRoundTripsThroughEncryption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeApplicationsCSV(&buf, nil))

	sealed, err := utils.EncryptOpenSSLSalted([]byte("s3cret"), buf.String())
	require.NoError(t, err)
	plain, err := utils.DecryptOpenSSLSalted([]byte("s3cret"), sealed)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), plain)
}
