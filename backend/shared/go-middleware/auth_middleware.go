package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type contextKey string

const (
	ContextKeyUserID = contextKey("userID")
	ContextKeyEmail  = contextKey("email")
	ContextKeyRole   = contextKey("role")

	// AccessTokenQueryParam is accepted only where headers cannot be set
	// (browser websocket upgrades).
	AccessTokenQueryParam = "access_token"
)

// AuthMiddleware answers 401 unless the request carries a valid access token.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractAccessToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil,
				)
				return
			}

			id, vErr := ValidateToken(tokenStr, secret)
			if vErr != nil {
				respondInvalidToken(w, vErr)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func respondInvalidToken(w http.ResponseWriter, err error) {
	if errors.Is(err, jwt.ErrTokenExpired) {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, err,
		)
		return
	}
	utils.RespondErrorWithCode(
		w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, err,
	)
}

// helper: Bearer header first, then the websocket query fallback
func extractAccessToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h != "" {
		if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
			return "", errors.New("invalid Authorization header format")
		}
		return strings.TrimSpace(h[7:]), nil
	}
	if r.Header.Get("Upgrade") != "" {
		if t := r.URL.Query().Get(AccessTokenQueryParam); t != "" {
			return t, nil
		}
	}
	return "", errors.New("missing Authorization header")
}

// WithIdentity stores id on ctx the way AuthMiddleware does.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, id.UserID)
	ctx = context.WithValue(ctx, ContextKeyEmail, id.Email)
	return context.WithValue(ctx, ContextKeyRole, id.Role)
}

// UserIDFromContext returns uuid.Nil, false for anonymous requests.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func EmailFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ContextKeyEmail).(string)
	return s
}

func RoleFromContext(ctx context.Context) models.UserRole {
	role, _ := ctx.Value(ContextKeyRole).(models.UserRole)
	return role
}

// IdentityFromContext rebuilds the Identity placed by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, false
	}
	return &Identity{UserID: uid, Email: EmailFromContext(ctx), Role: RoleFromContext(ctx)}, true
}
