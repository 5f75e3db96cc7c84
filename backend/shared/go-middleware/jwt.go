package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// TokenAudience is the aud claim hosted auth puts on signed-in user tokens.
const TokenAudience = "authenticated"

// Identity is what a verified access token says about the caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.UserRole
}

// ValidateToken checks the HS256 signature with the project JWT secret plus
// the exp and aud claims, and extracts the caller's identity. The role lives
// in app_metadata.role and defaults to tenant.
func ValidateToken(tokenString string, secret []byte) (*Identity, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("subject is not a uuid: %w", err)
	}

	id := &Identity{UserID: userID, Role: models.RoleTenant}
	if email, ok := claims["email"].(string); ok {
		id.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if meta, ok := claims["app_metadata"].(map[string]any); ok {
		if role, ok := meta["role"].(string); ok && models.UserRole(role).Valid() {
			id.Role = models.UserRole(role)
		}
	}
	return id, nil
}
