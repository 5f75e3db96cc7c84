package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationSubmitted       ApplicationStatus = "submitted"
	ApplicationUnderReview     ApplicationStatus = "under_review"
	ApplicationPreApproved     ApplicationStatus = "pre_approved"
	ApplicationPaymentPending  ApplicationStatus = "payment_pending"
	ApplicationPaidUnderReview ApplicationStatus = "paid_under_review"
	ApplicationApproved        ApplicationStatus = "approved"
	ApplicationRejected        ApplicationStatus = "rejected"
	ApplicationWithdrawn       ApplicationStatus = "withdrawn"
)

var (
	reviewers = []Actor{ActorOwner, ActorAdmin}
	// system rejects on payment expiry and when another applicant is approved
	rejecters = []Actor{ActorOwner, ActorAdmin, ActorSystem}
)

// ApplicationStatusMachine is the single source of truth for which
// application status changes are legal and who may make them.
var ApplicationStatusMachine = NewStateMachine("application", []Transition[ApplicationStatus]{
	{ApplicationSubmitted, ApplicationUnderReview, reviewers},
	{ApplicationSubmitted, ApplicationRejected, rejecters},
	{ApplicationSubmitted, ApplicationWithdrawn, []Actor{ActorTenant}},

	{ApplicationUnderReview, ApplicationPreApproved, reviewers},
	{ApplicationUnderReview, ApplicationRejected, rejecters},
	{ApplicationUnderReview, ApplicationWithdrawn, []Actor{ActorTenant}},

	{ApplicationPreApproved, ApplicationPaymentPending, reviewers},
	{ApplicationPreApproved, ApplicationRejected, rejecters},
	{ApplicationPreApproved, ApplicationWithdrawn, []Actor{ActorTenant}},

	{ApplicationPaymentPending, ApplicationPaidUnderReview, []Actor{ActorSystem}},
	{ApplicationPaymentPending, ApplicationRejected, rejecters},
	{ApplicationPaymentPending, ApplicationWithdrawn, []Actor{ActorTenant}},

	{ApplicationPaidUnderReview, ApplicationApproved, reviewers},
	{ApplicationPaidUnderReview, ApplicationRejected, rejecters},
})

// ActiveApplicationStatuses are the non-terminal statuses; a tenant may hold
// at most one application in these per property.
var ActiveApplicationStatuses = []ApplicationStatus{
	ApplicationSubmitted,
	ApplicationUnderReview,
	ApplicationPreApproved,
	ApplicationPaymentPending,
	ApplicationPaidUnderReview,
}

type Application struct {
	Versioned

	ID                 uuid.UUID         `json:"id"`
	PropertyID         uuid.UUID         `json:"property_id"`
	TenantID           uuid.UUID         `json:"tenant_id"`
	Status             ApplicationStatus `json:"status"`
	FullName           string            `json:"full_name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	Employer           *string           `json:"employer,omitempty"`
	JobTitle           *string           `json:"job_title,omitempty"`
	MonthlyIncomeCents int64             `json:"monthly_income_cents"`
	MoveInDate         time.Time         `json:"move_in_date"`
	Occupants          int               `json:"occupants"`
	HasPets            bool              `json:"has_pets"`
	PetDetails         *string           `json:"pet_details,omitempty"`
	Notes              *string           `json:"notes,omitempty"`
	SSNLast4           *string           `json:"-"`
	ReviewerID         *uuid.UUID        `json:"reviewer_id,omitempty"`
	DecisionReason     *string           `json:"decision_reason,omitempty"`
	PaymentDueAt       *time.Time        `json:"payment_due_at,omitempty"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	DecidedAt          *time.Time        `json:"decided_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (a *Application) GetID() string { return a.ID.String() }

func (a *Application) IsActive() bool {
	return !ApplicationStatusMachine.IsTerminal(a.Status)
}

// IncomeToRentRatio is monthly income over monthly rent, 0 when rent is 0.
func (a *Application) IncomeToRentRatio(monthlyRentCents int64) float64 {
	if monthlyRentCents <= 0 {
		return 0
	}
	return float64(a.MonthlyIncomeCents) / float64(monthlyRentCents)
}

type ApplicationFilters struct {
	TenantID   *uuid.UUID
	OwnerID    *uuid.UUID
	PropertyID *uuid.UUID
	Statuses   []ApplicationStatus
	Limit      int
	Offset     int
}
