package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// IntentRequest describes a PaymentIntent to create.
type IntentRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentGateway is the slice of Stripe the payment flow needs.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*stripe.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
	CancelIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
	// RefundIntent returns the full amount of a succeeded intent.
	RefundIntent(ctx context.Context, intentID, idempotencyKey string) (*stripe.Refund, error)
}

type stripeGateway struct{}

// NewStripeGateway uses the package-level stripe.Key.
func NewStripeGateway(secretKey string) PaymentGateway {
	stripe.Key = secretKey
	return &stripeGateway{}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe create payment intent: %v", utils.ErrExternalServiceFailure, err)
	}
	return pi, nil
}

func (g *stripeGateway) GetIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe get payment intent: %v", utils.ErrExternalServiceFailure, err)
	}
	return pi, nil
}

func (g *stripeGateway) CancelIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	pi, err := paymentintent.Cancel(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe cancel payment intent: %v", utils.ErrExternalServiceFailure, err)
	}
	return pi, nil
}

func (g *stripeGateway) RefundIntent(ctx context.Context, intentID, idempotencyKey string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)
	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe refund payment intent: %v", utils.ErrExternalServiceFailure, err)
	}
	return r, nil
}
