package models

import (
	"time"

	"github.com/google/uuid"
)

type OnboardingStep string

const (
	StepProfile       OnboardingStep = "profile"
	StepPreferences   OnboardingStep = "preferences"
	StepDocuments     OnboardingStep = "documents"
	StepPayoutDetails OnboardingStep = "payout_details"
	StepFirstProperty OnboardingStep = "first_property"
)

// OnboardingSteps lists the required steps per role, in order.
var OnboardingSteps = map[UserRole][]OnboardingStep{
	RoleTenant: {StepProfile, StepPreferences, StepDocuments},
	RoleOwner:  {StepProfile, StepPayoutDetails, StepFirstProperty},
	RoleAdmin:  {StepProfile},
}

type OnboardingState struct {
	Versioned

	UserID         uuid.UUID        `json:"user_id"`
	Role           UserRole         `json:"role"`
	CompletedSteps []OnboardingStep `json:"completed_steps"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (o *OnboardingState) GetID() string { return o.UserID.String() }

// CurrentStep is the first required step not yet completed, or "" when done.
func (o *OnboardingState) CurrentStep() OnboardingStep {
	for _, s := range OnboardingSteps[o.Role] {
		if !o.HasCompleted(s) {
			return s
		}
	}
	return ""
}

func (o *OnboardingState) HasCompleted(step OnboardingStep) bool {
	for _, s := range o.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// StepAllowed reports whether step belongs to the role's checklist.
func (o *OnboardingState) StepAllowed(step OnboardingStep) bool {
	for _, s := range OnboardingSteps[o.Role] {
		if s == step {
			return true
		}
	}
	return false
}
