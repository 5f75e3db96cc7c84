package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// maxWebhookBytes matches the limit in Stripe's webhook examples.
const maxWebhookBytes = 65536

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreateApplicationIntentHandler -> POST /api/v1/applications/{id}/payment-intent
func (c *PaymentController) CreateApplicationIntentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.payments.CreateApplicationIntent(r.Context(), id, appID)
	respond(w, http.StatusOK, out, err)
}

// CreateRentIntentHandler -> POST /api/v1/leases/{id}/rent-payment-intent
func (c *PaymentController) CreateRentIntentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	leaseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.payments.CreateRentIntent(r.Context(), id, leaseID)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/payments
func (c *PaymentController) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.payments.ListForTenant(r.Context(), id, page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/admin/payments
func (c *PaymentController) ListAllHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	status := models.PaymentStatus(r.URL.Query().Get("status"))
	out, err := c.payments.ListAll(r.Context(), status, page)
	respond(w, http.StatusOK, out, err)
}

// WebhookHandler -> POST /api/v1/stripe/webhook
// Stripe retries anything that is not 2xx, so only processing failures
// answer 500.
func (c *PaymentController) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		utils.Logger.Error("Missing Stripe-Signature header")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := c.payments.HandleWebhook(r.Context(), payload, sigHeader); err != nil {
		if errors.Is(err, services.ErrWebhookSignature) {
			utils.Logger.WithError(err).Warn("Rejected Stripe webhook")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		utils.Logger.WithError(err).Error("Failed to process Stripe webhook")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
