package models

import (
	"time"

	"github.com/google/uuid"
)

type LeaseStatus string

const (
	LeaseDraft        LeaseStatus = "draft"
	LeaseSent         LeaseStatus = "sent"
	LeaseTenantSigned LeaseStatus = "tenant_signed"
	LeaseFullySigned  LeaseStatus = "fully_signed"
	LeaseVoid         LeaseStatus = "void"
)

var LeaseStatusMachine = NewStateMachine("lease", []Transition[LeaseStatus]{
	{LeaseDraft, LeaseSent, []Actor{ActorOwner, ActorAdmin}},
	{LeaseDraft, LeaseVoid, []Actor{ActorOwner, ActorAdmin}},
	{LeaseSent, LeaseTenantSigned, []Actor{ActorTenant}},
	{LeaseSent, LeaseVoid, []Actor{ActorOwner, ActorAdmin}},
	{LeaseTenantSigned, LeaseFullySigned, []Actor{ActorOwner, ActorAdmin}},
	{LeaseTenantSigned, LeaseVoid, []Actor{ActorOwner, ActorAdmin}},
})

type Lease struct {
	Versioned

	ID                   uuid.UUID   `json:"id"`
	ApplicationID        uuid.UUID   `json:"application_id"`
	PropertyID           uuid.UUID   `json:"property_id"`
	TenantID             uuid.UUID   `json:"tenant_id"`
	OwnerID              uuid.UUID   `json:"owner_id"`
	Status               LeaseStatus `json:"status"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	MonthlyRentCents     int64       `json:"monthly_rent_cents"`
	SecurityDepositCents int64       `json:"security_deposit_cents"`
	RentDueDay           int         `json:"rent_due_day"`
	Body                 string      `json:"body"`
	ContentHash          string      `json:"content_hash"`
	TenantSignature      *string     `json:"tenant_signature,omitempty"`
	TenantSignedAt       *time.Time  `json:"tenant_signed_at,omitempty"`
	TenantSignedIP       *string     `json:"tenant_signed_ip,omitempty"`
	OwnerSignature       *string     `json:"owner_signature,omitempty"`
	OwnerSignedAt        *time.Time  `json:"owner_signed_at,omitempty"`
	OwnerSignedIP        *string     `json:"owner_signed_ip,omitempty"`
	VoidReason           *string     `json:"void_reason,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (l *Lease) GetID() string { return l.ID.String() }

// ActiveOn reports whether the lease is fully signed and covers day.
func (l *Lease) ActiveOn(day time.Time) bool {
	if l.Status != LeaseFullySigned {
		return false
	}
	d := day.UTC().Truncate(24 * time.Hour)
	return !d.Before(l.StartDate) && !d.After(l.EndDate)
}
