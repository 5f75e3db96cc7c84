package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// CreateJWT mints an access token shaped like the hosted auth service's.
func (h *TestHelper) CreateJWT(userID uuid.UUID, email string, role models.UserRole) string {
	return h.signClaims(userClaims(userID, email, role, time.Now().Add(15*time.Minute)))
}

// CreateExpiredJWT mints a token that expired a minute ago.
func (h *TestHelper) CreateExpiredJWT(userID uuid.UUID, role models.UserRole) string {
	return h.signClaims(userClaims(userID, "expired@example.com", role, time.Now().Add(-time.Minute)))
}

func userClaims(userID uuid.UUID, email string, role models.UserRole, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":          userID.String(),
		"aud":          "authenticated",
		"role":         "authenticated",
		"email":        email,
		"iat":          time.Now().Unix(),
		"exp":          exp.Unix(),
		"app_metadata": map[string]any{"role": string(role), "provider": "email"},
	}
}

func (h *TestHelper) signClaims(claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.JWTSecret)
	require.NoError(h.T, err, "Failed to sign test JWT")
	return signed
}
