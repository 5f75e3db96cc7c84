package testhelpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// SignStripePayload constructs the "Stripe-Signature" header value.
func (h *TestHelper) SignStripePayload(payload []byte) string {
	require.NotEmpty(h.T, h.StripeWebhookSecret, "StripeWebhookSecret is not configured in TestHelper")
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(h.StripeWebhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.", timestamp)))
	_, _ = mac.Write(payload)
	signature := mac.Sum(nil)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(signature))
}

// MockStripeWebhookPayload creates a JSON byte slice for a Stripe webhook
// event. An empty eventID gets a random one.
func (h *TestHelper) MockStripeWebhookPayload(eventID, eventType string, data map[string]any) []byte {
	if eventID == "" {
		eventID = "evt_test_" + utils.RandomString(10)
	}
	payload := map[string]any{
		"id":          eventID,
		"object":      "event",
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"type":        eventType,
		"data": map[string]any{
			"object": data,
		},
	}

	jsonBytes, err := json.Marshal(payload)
	require.NoError(h.T, err, "Failed to marshal mock Stripe webhook payload")
	return jsonBytes
}

// PaymentIntentObject is the data.object of a payment_intent.* event.
func PaymentIntentObject(intentID, status string, amountCents int64, metadata map[string]string) map[string]any {
	return map[string]any{
		"id":       intentID,
		"object":   "payment_intent",
		"amount":   amountCents,
		"currency": "usd",
		"status":   status,
		"metadata": metadata,
	}
}
