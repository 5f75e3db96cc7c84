package dtos

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

func TestMaskSSN(t *testing.T) {
	assert.Equal(t, "***-**-1234", MaskSSN("1234"))
	assert.Equal(t, "***-**-6789", MaskSSN("123456789"))
}

func TestApplicationDTONeverLeaksSSN(t *testing.T) {
	ssn := "4321"
	a := models.Application{Status: models.ApplicationSubmitted, SSNLast4: &ssn}

	raw, err := json.Marshal(NewApplicationFromModel(a, models.ActorTenant))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"4321"`)
	assert.Contains(t, string(raw), `"ssn_masked":"***-**-4321"`)
	assert.Contains(t, string(raw), `"allowed_transitions":["withdrawn"]`)
}

func TestValidationErrorDetails(t *testing.T) {
	type req struct {
		MonthlyRentCents int64  `validate:"required"`
		Email            string `validate:"required,email"`
	}
	err := validator.New().Struct(req{Email: "nope"})
	details := NewValidationErrorDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, "monthly_rent_cents", details[0].Field)
	assert.Equal(t, "required", details[0].Code)
	assert.Equal(t, "email", details[1].Field)

	assert.Nil(t, NewValidationErrorDetails(assert.AnError))
}

func TestPropertySummaryCover(t *testing.T) {
	s := NewPropertySummary(models.Property{Title: "A", ImageURLs: []string{"https://img/1.jpg", "https://img/2.jpg"}})
	require.NotNil(t, s.CoverImageURL)
	assert.Equal(t, "https://img/1.jpg", *s.CoverImageURL)
	assert.Nil(t, NewPropertySummary(models.Property{}).CoverImageURL)
}
