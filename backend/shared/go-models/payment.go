package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentKind string

const (
	PaymentKindApplication PaymentKind = "application"
	PaymentKindRent        PaymentKind = "rent"
)

type PaymentStatus string

const (
	PaymentRequiresPayment PaymentStatus = "requires_payment"
	PaymentProcessing      PaymentStatus = "processing"
	PaymentSucceeded       PaymentStatus = "succeeded"
	PaymentFailed          PaymentStatus = "failed"
	PaymentCanceled        PaymentStatus = "canceled"
	PaymentRefunded        PaymentStatus = "refunded"
)

// PaymentStatusMachine mirrors Stripe PaymentIntent outcomes. A failed
// attempt may be retried on the same intent, so failed is not terminal.
var PaymentStatusMachine = NewStateMachine("payment", []Transition[PaymentStatus]{
	{PaymentRequiresPayment, PaymentProcessing, []Actor{ActorSystem}},
	{PaymentRequiresPayment, PaymentSucceeded, []Actor{ActorSystem}},
	{PaymentRequiresPayment, PaymentFailed, []Actor{ActorSystem}},
	{PaymentRequiresPayment, PaymentCanceled, []Actor{ActorSystem}},
	{PaymentProcessing, PaymentSucceeded, []Actor{ActorSystem}},
	{PaymentProcessing, PaymentFailed, []Actor{ActorSystem}},
	{PaymentProcessing, PaymentCanceled, []Actor{ActorSystem}},
	{PaymentFailed, PaymentProcessing, []Actor{ActorSystem}},
	{PaymentFailed, PaymentSucceeded, []Actor{ActorSystem}},
	{PaymentFailed, PaymentCanceled, []Actor{ActorSystem}},
	// money that arrived for an application that had already closed
	{PaymentSucceeded, PaymentRefunded, []Actor{ActorSystem}},
})

// Open payments can still be completed on their existing PaymentIntent.
func (s PaymentStatus) Open() bool {
	return s == PaymentRequiresPayment || s == PaymentProcessing || s == PaymentFailed
}

type Payment struct {
	Versioned

	ID                    uuid.UUID     `json:"id"`
	ApplicationID         *uuid.UUID    `json:"application_id,omitempty"`
	LeaseID               *uuid.UUID    `json:"lease_id,omitempty"`
	TenantID              uuid.UUID     `json:"tenant_id"`
	Kind                  PaymentKind   `json:"kind"`
	Period                *string       `json:"period,omitempty"` // YYYY-MM for rent
	AmountCents           int64         `json:"amount_cents"`
	Currency              string        `json:"currency"`
	Status                PaymentStatus `json:"status"`
	StripePaymentIntentID *string       `json:"stripe_payment_intent_id,omitempty"`
	IdempotencyKey        string        `json:"-"`
	FailureReason         *string       `json:"failure_reason,omitempty"`
	StripeRefundID        *string       `json:"stripe_refund_id,omitempty"`
	PaidAt                *time.Time    `json:"paid_at,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (p *Payment) GetID() string { return p.ID.String() }

// StripeEvent records a processed webhook event id for deduplication.
type StripeEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
}
