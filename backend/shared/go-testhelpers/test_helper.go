package testhelpers

import (
	"context"
	"testing"
)

const (
	// TestJWTSecret signs tokens minted by CreateJWT.
	TestJWTSecret = "test-jwt-secret-for-hs256-signing"
	// TestStripeWebhookSecret signs payloads built by SignStripePayload.
	TestStripeWebhookSecret = "whsec_test_secret"
)

// TestHelper collects what service and controller tests need: an in-memory
// store behind every repository interface plus token and webhook signing.
type TestHelper struct {
	T                   *testing.T
	Ctx                 context.Context
	JWTSecret           []byte
	StripeWebhookSecret string
	DBEncryptionKey     []byte

	Store *MemStore
}

func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return &TestHelper{
		T:                   t,
		Ctx:                 context.Background(),
		JWTSecret:           []byte(TestJWTSecret),
		StripeWebhookSecret: TestStripeWebhookSecret,
		DBEncryptionKey:     key,
		Store:               NewMemStore(),
	}
}
