package dtos

import (
	"time"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// Application omits the SSN and shows only its mask. AllowedTransitions
// lists what the requesting actor may do next.
type Application struct {
	models.Application
	SSNMasked          *string                    `json:"ssn_masked,omitempty"`
	AllowedTransitions []models.ApplicationStatus `json:"allowed_transitions"`
	Property           *PropertySummary           `json:"property,omitempty"`
}

func NewApplicationFromModel(a models.Application, actor models.Actor) Application {
	out := Application{
		Application:        a,
		AllowedTransitions: models.ApplicationStatusMachine.Next(a.Status, actor),
	}
	if out.AllowedTransitions == nil {
		out.AllowedTransitions = []models.ApplicationStatus{}
	}
	if a.SSNLast4 != nil {
		m := MaskSSN(*a.SSNLast4)
		out.SSNMasked = &m
	}
	return out
}

// MaskSSN renders the last four digits as ***-**-1234.
func MaskSSN(last4 string) string {
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return "***-**-" + last4
}

// Lease adds the computed next rent due date.
type Lease struct {
	models.Lease
	NextRentDue *time.Time `json:"next_rent_due,omitempty"`
}
