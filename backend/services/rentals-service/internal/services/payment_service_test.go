package services

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-testhelpers"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// deliver signs and applies one payment_intent.* event.
func (e *testEnv) deliver(t *testing.T, eventID string, eventType stripe.EventType, intentID, status string, amount int64, metadata map[string]string) {
	t.Helper()
	payload := e.h.MockStripeWebhookPayload(eventID, string(eventType), testhelpers.PaymentIntentObject(intentID, status, amount, metadata))
	require.NoError(t, e.payments.HandleWebhook(e.h.Ctx, payload, e.h.SignStripePayload(payload)))
}

func TestApplicationPaymentFlow(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	first, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)
	assert.Equal(t, prop.ApplicationFeeCents+prop.SecurityDepositCents, first.AmountCents)
	assert.Equal(t, utils.DefaultCurrency, first.Currency)
	assert.Equal(t, models.PaymentRequiresPayment, first.Status)
	assert.NotEmpty(t, first.ClientSecret)

	require.Len(t, e.gateway.requests, 1)
	req := e.gateway.requests[0]
	assert.Equal(t, constants.StripeIdempotencyKeyPrefix+first.PaymentID, req.IdempotencyKey)
	assert.Equal(t, first.PaymentID, req.Metadata[constants.StripeMetadataPaymentIDKey])
	assert.Equal(t, app.ID.String(), req.Metadata[constants.StripeMetadataApplicationIDKey])
	assert.Equal(t, string(models.PaymentKindApplication), req.Metadata[constants.StripeMetadataKindKey])
	assert.Equal(t, app.Email, req.ReceiptEmail)

	t.Run("asking again reuses the open payment", func(t *testing.T) {
		again, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
		require.NoError(t, err)
		assert.Equal(t, first.PaymentID, again.PaymentID)
		assert.Equal(t, first.ClientSecret, again.ClientSecret)
		assert.Len(t, e.gateway.requests, 1)
	})

	t.Run("other tenants see not found", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleTenant, "other")
		_, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(other), app.ID)
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	intentID := "pi_test_1"
	meta := map[string]string{constants.StripeMetadataPaymentIDKey: first.PaymentID}
	e.deliver(t, "evt_paid_1", stripe.EventTypePaymentIntentSucceeded, intentID, "succeeded", first.AmountCents, meta)

	payment, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, intentID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentSucceeded, payment.Status)
	assert.NotNil(t, payment.PaidAt)

	paid, err := e.h.Store.Applications.GetByID(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPaidUnderReview, paid.Status)
	assert.Nil(t, paid.PaymentDueAt)
	receipts := e.mailer.To(app.Email)
	require.NotEmpty(t, receipts)

	t.Run("redelivered event is applied once", func(t *testing.T) {
		before := len(e.h.Store.Audit.All())
		e.deliver(t, "evt_paid_1", stripe.EventTypePaymentIntentSucceeded, intentID, "succeeded", first.AmountCents, meta)
		assert.Len(t, e.h.Store.Audit.All(), before)
	})

	t.Run("late processing event is ignored", func(t *testing.T) {
		e.deliver(t, "evt_processing_late", stripe.EventTypePaymentIntentProcessing, intentID, "processing", first.AmountCents, meta)
		p, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, intentID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSucceeded, p.Status)
	})

	t.Run("no new intent once the application is paid", func(t *testing.T) {
		_, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newTestEnv(t)
	payload := e.h.MockStripeWebhookPayload("", string(stripe.EventTypePaymentIntentSucceeded),
		testhelpers.PaymentIntentObject("pi_x", "succeeded", 100, nil))

	err := e.payments.HandleWebhook(e.h.Ctx, payload, "t=1,v1=deadbeef")
	require.ErrorIs(t, err, ErrWebhookSignature)
}

func TestWebhookIgnoresUnknownPaymentsAndTypes(t *testing.T) {
	e := newTestEnv(t)
	e.deliver(t, "", stripe.EventTypePaymentIntentSucceeded, "pi_unknown", "succeeded", 100, nil)

	payload := e.h.MockStripeWebhookPayload("", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})
	require.NoError(t, e.payments.HandleWebhook(e.h.Ctx, payload, e.h.SignStripePayload(payload)))
	assert.Empty(t, e.h.Store.Audit.All())
}

func TestFailedPaymentCanBeRetried(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	intent, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)

	obj := testhelpers.PaymentIntentObject("pi_test_1", "requires_payment_method", intent.AmountCents, nil)
	obj["last_payment_error"] = map[string]any{"message": "Your card was declined."}
	payload := e.h.MockStripeWebhookPayload("evt_failed", string(stripe.EventTypePaymentIntentPaymentFailed), obj)
	require.NoError(t, e.payments.HandleWebhook(e.h.Ctx, payload, e.h.SignStripePayload(payload)))

	failed, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Equal(t, "Your card was declined.", utils.Val(failed.FailureReason))

	again, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.PaymentID, again.PaymentID)
	assert.Len(t, e.gateway.requests, 1)

	a, err := e.h.Store.Applications.GetByID(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPaymentPending, a.Status)
}

func TestCanceledIntentIsReplaced(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	first, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)
	e.gateway.setStatus("pi_test_1", stripe.PaymentIntentStatusCanceled)

	second, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentID, second.PaymentID)
	assert.Len(t, e.gateway.requests, 2)

	old, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCanceled, old.Status)
}

func TestRentPayment(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	lease := e.h.CreateTestLease(app, owner.ID, models.LeaseFullySigned)

	t.Run("unsigned leases cannot be paid", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleTenant, "other")
		a := e.h.CreateTestApplication(prop.ID, other.ID, models.ApplicationApproved)
		draft := e.h.CreateTestLease(a, owner.ID, models.LeaseSent)
		_, err := e.payments.CreateRentIntent(e.h.Ctx, identity(other), draft.ID)
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	intent, err := e.payments.CreateRentIntent(e.h.Ctx, identity(tenant), lease.ID)
	require.NoError(t, err)
	assert.Equal(t, lease.MonthlyRentCents, intent.AmountCents)
	require.NotNil(t, intent.Period)
	assert.Len(t, *intent.Period, len("2006-01"))

	last := e.gateway.requests[len(e.gateway.requests)-1]
	assert.Equal(t, lease.ID.String(), last.Metadata[constants.StripeMetadataLeaseIDKey])
	assert.Equal(t, string(models.PaymentKindRent), last.Metadata[constants.StripeMetadataKindKey])

	e.deliver(t, "evt_rent", stripe.EventTypePaymentIntentSucceeded, "pi_rent_unknown", "succeeded", intent.AmountCents,
		map[string]string{constants.StripeMetadataPaymentIDKey: intent.PaymentID})

	_, err = e.payments.CreateRentIntent(e.h.Ctx, identity(tenant), lease.ID)
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	assert.NotEmpty(t, e.mailer.To(app.Email))

	history, err := e.payments.ListForTenant(e.h.Ctx, identity(tenant), utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, history.Total)
	assert.Equal(t, models.PaymentSucceeded, history.Items[0].Status)

	rent := history.Items[0]
	require.NotNil(t, rent.ApplicationID)
	assert.Equal(t, app.ID, *rent.ApplicationID)
	assert.Equal(t, lease.ID, *rent.LeaseID)

	still, err := e.h.Store.Applications.GetByID(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, still.Status)
}

func TestPaymentRowsNeedAnApplication(t *testing.T) {
	e := newTestEnv(t)
	err := e.h.Store.Payments.Create(e.h.Ctx, &models.Payment{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		Kind:           models.PaymentKindRent,
		AmountCents:    1000,
		Status:         models.PaymentRequiresPayment,
		IdempotencyKey: "payment-orphan",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repositories.ErrDuplicate)
}

func TestOneOpenPaymentPerApplication(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	first, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)

	appID := app.ID
	err = e.h.Store.Payments.Create(e.h.Ctx, &models.Payment{
		ID:             uuid.New(),
		ApplicationID:  &appID,
		TenantID:       tenant.ID,
		Kind:           models.PaymentKindApplication,
		AmountCents:    first.AmountCents,
		Currency:       utils.DefaultCurrency,
		Status:         models.PaymentRequiresPayment,
		IdempotencyKey: "payment-second-open",
	})
	require.ErrorIs(t, err, repositories.ErrDuplicate)

	t.Run("a closed payment does not block a new one", func(t *testing.T) {
		e.gateway.setStatus("pi_test_1", stripe.PaymentIntentStatusCanceled)
		again, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.PaymentID, again.PaymentID)
	})
}

func TestLeavingPaymentPendingCancelsOpenPayment(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	_, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)

	_, err = e.applications.Transition(e.h.Ctx, identity(tenant), app.ID, dtos.TransitionRequest{To: "withdrawn"})
	require.NoError(t, err)

	assert.Equal(t, stripe.PaymentIntentStatusCanceled, e.gateway.intentStatus("pi_test_1"))
	p, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCanceled, p.Status)

	open, err := e.h.Store.Payments.FindOpenForApplication(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	t.Run("the canceled webhook is a no-op", func(t *testing.T) {
		e.deliver(t, "evt_canceled", stripe.EventTypePaymentIntentCanceled, "pi_test_1", "canceled", p.AmountCents,
			map[string]string{constants.StripeMetadataPaymentIDKey: p.ID.String()})
		again, err := e.h.Store.Payments.GetByID(e.h.Ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.RowVersion, again.RowVersion)
	})
}

func TestPaymentPendingExpiryCancelsOpenPayment(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	_, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)

	n, err := e.applications.ExpireOverduePayments(e.h.Ctx, time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, stripe.PaymentIntentStatusCanceled, e.gateway.intentStatus("pi_test_1"))
}

func TestSucceededPaymentOnClosedApplicationIsRefunded(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaymentPending)

	intent, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)

	// Stripe had already started charging the card, so cancel is refused
	e.gateway.cancelErr = utils.ErrExternalServiceFailure
	_, err = e.applications.Transition(e.h.Ctx, identity(tenant), app.ID, dtos.TransitionRequest{To: "withdrawn"})
	require.NoError(t, err)
	open, err := e.h.Store.Payments.FindOpenForApplication(e.h.Ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, open)

	meta := map[string]string{constants.StripeMetadataPaymentIDKey: intent.PaymentID}

	t.Run("a failed refund is retried on redelivery", func(t *testing.T) {
		e.gateway.refundErr = utils.ErrExternalServiceFailure
		payload := e.h.MockStripeWebhookPayload("evt_late_paid", string(stripe.EventTypePaymentIntentSucceeded),
			testhelpers.PaymentIntentObject("pi_test_1", "succeeded", intent.AmountCents, meta))
		require.Error(t, e.payments.HandleWebhook(e.h.Ctx, payload, e.h.SignStripePayload(payload)))

		p, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_1")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSucceeded, p.Status)
		e.gateway.refundErr = nil
	})

	e.deliver(t, "evt_late_paid", stripe.EventTypePaymentIntentSucceeded, "pi_test_1", "succeeded", intent.AmountCents, meta)

	p, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, p.Status)
	assert.Equal(t, "re_pi_test_1", utils.Val(p.StripeRefundID))
	assert.Equal(t, "pi_test_1", e.gateway.refunds[constants.StripeRefundKeyPrefix+intent.PaymentID])

	a, err := e.h.Store.Applications.GetByID(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, a.Status)

	var refundMail bool
	for _, m := range e.mailer.To(app.Email) {
		if strings.HasPrefix(m.Subject, "Payment refunded") {
			refundMail = true
		}
	}
	assert.True(t, refundMail)

	t.Run("paid applications keep their money", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleTenant, "other")
		paid := e.h.CreateTestApplication(prop.ID, other.ID, models.ApplicationPaymentPending)
		e.gateway.cancelErr = nil
		in, err := e.payments.CreateApplicationIntent(e.h.Ctx, identity(other), paid.ID)
		require.NoError(t, err)
		e.deliver(t, "evt_paid_ok", stripe.EventTypePaymentIntentSucceeded, "pi_test_2", "succeeded", in.AmountCents,
			map[string]string{constants.StripeMetadataPaymentIDKey: in.PaymentID})

		kept, err := e.h.Store.Payments.GetByIntentID(e.h.Ctx, "pi_test_2")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSucceeded, kept.Status)
		assert.Len(t, e.gateway.refunds, 1)
	})
}
