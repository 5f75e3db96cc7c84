package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-testhelpers"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("X-User", id.UserID.String())
		w.Header().Set("X-Role", string(id.Role))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	h := testhelpers.NewTestHelper(t)
	handler := AuthMiddleware(h.JWTSecret)(identityEcho())
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		req := h.BuildAuthRequest(http.MethodGet, "/api/v1/me", h.CreateJWT(userID, "o@example.com", models.RoleOwner), nil)
		rec := h.Serve(handler, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID.String(), rec.Header().Get("X-User"))
		assert.Equal(t, "owner", rec.Header().Get("X-Role"))
	})

	t.Run("missing header", func(t *testing.T) {
		rec := h.Serve(handler, h.BuildAuthRequest(http.MethodGet, "/api/v1/me", "", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		req := h.BuildAuthRequest(http.MethodGet, "/api/v1/me", h.CreateExpiredJWT(userID, models.RoleTenant), nil)
		rec := h.Serve(handler, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_expired")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testhelpers.NewTestHelper(t)
		other.JWTSecret = []byte("some-other-secret")
		req := h.BuildAuthRequest(http.MethodGet, "/api/v1/me", other.CreateJWT(userID, "", models.RoleTenant), nil)
		assert.Equal(t, http.StatusUnauthorized, h.Serve(handler, req).Code)
	})

	t.Run("websocket query token", func(t *testing.T) {
		tok := h.CreateJWT(userID, "", models.RoleTenant)
		req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+tok, nil)
		req.Header.Set("Upgrade", "websocket")
		assert.Equal(t, http.StatusOK, h.Serve(handler, req).Code)

		plain := httptest.NewRequest(http.MethodGet, "/api/v1/me?access_token="+tok, nil)
		assert.Equal(t, http.StatusUnauthorized, h.Serve(handler, plain).Code)
	})
}

func TestValidateTokenRejectsNonHMAC(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, []byte(testhelpers.TestJWTSecret))
	assert.Error(t, err)
}

func TestValidateTokenRequiresHS256(t *testing.T) {
	secret := []byte(testhelpers.TestJWTSecret)
	claims := jwt.MapClaims{
		"sub": uuid.NewString(),
		"aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS384, jwt.SigningMethodHS512} {
		signed, err := jwt.NewWithClaims(method, claims).SignedString(secret)
		require.NoError(t, err)
		_, err = ValidateToken(signed, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid, method.Alg())
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(signed, secret)
	assert.NoError(t, err)
}

func TestValidateTokenDefaultsRole(t *testing.T) {
	secret := []byte(testhelpers.TestJWTSecret)
	claims := jwt.MapClaims{
		"sub":          uuid.NewString(),
		"aud":          TokenAudience,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"email":        " Mixed@Example.COM ",
		"app_metadata": map[string]any{"role": "superuser"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	id, err := ValidateToken(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenant, id.Role)
	assert.Equal(t, "mixed@example.com", id.Email)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	h := testhelpers.NewTestHelper(t)
	handler := OptionalAuthMiddleware(h.JWTSecret)(identityEcho())

	assert.Equal(t, http.StatusNoContent, h.Serve(handler, h.BuildAuthRequest(http.MethodGet, "/", "", nil)).Code)

	req := h.BuildAuthRequest(http.MethodGet, "/", h.CreateJWT(uuid.New(), "", models.RoleTenant), nil)
	assert.Equal(t, http.StatusOK, h.Serve(handler, req).Code)

	bad := h.BuildAuthRequest(http.MethodGet, "/", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, h.Serve(handler, bad).Code)
}

func TestRequireRole(t *testing.T) {
	h := testhelpers.NewTestHelper(t)
	handler := AuthMiddleware(h.JWTSecret)(RequireRole(models.RoleOwner, models.RoleAdmin)(identityEcho()))

	tenant := h.BuildAuthRequest(http.MethodGet, "/", h.CreateJWT(uuid.New(), "", models.RoleTenant), nil)
	assert.Equal(t, http.StatusForbidden, h.Serve(handler, tenant).Code)

	admin := h.BuildAuthRequest(http.MethodGet, "/", h.CreateJWT(uuid.New(), "", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, h.Serve(handler, admin).Code)

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, h.Serve(AdminOnly(identityEcho()), anon).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "one token refills every 30s")

	now = now.Add(time.Hour)
	assert.Equal(t, 2, rl.Cleanup())
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Handler(identityEcho())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Handler(identityEcho())

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3, 203.0.113.4"))

	t.Run("behind a trusted proxy the appended hop is the key", func(t *testing.T) {
		trust, err := utils.ParseTrustedProxies([]string{"10.0.0.0/8"})
		require.NoError(t, err)
		utils.SetTrustedProxies(trust)
		defer utils.SetTrustedProxies(nil)

		rl := NewRateLimiter(1, time.Minute)
		handler := rl.Handler(identityEcho())
		send := func(forwardedFor string) int {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", nil)
			req.RemoteAddr = "10.1.2.3:443"
			req.Header.Set("X-Forwarded-For", forwardedFor)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}
		assert.Equal(t, http.StatusNoContent, send("1.1.1.1, 203.0.113.9"))
		assert.Equal(t, http.StatusTooManyRequests, send("2.2.2.2, 203.0.113.9"))
		assert.Equal(t, http.StatusNoContent, send("203.0.113.10"))
	})
}

type recordedError struct {
	path, message string
	stack         *string
}

type fakeRecorder struct {
	mu   sync.Mutex
	errs []recordedError
}

func (f *fakeRecorder) RecordServerError(_ context.Context, _ *uuid.UUID, path, message string, stack *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, recordedError{path, message, stack})
}

func TestRecoveryMiddleware(t *testing.T) {
	rec := &fakeRecorder{}
	panicky := RecoveryMiddleware(rec)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	panicky.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, rec.errs, 1)
	assert.Equal(t, "panic: boom", rec.errs[0].message)
	assert.NotNil(t, rec.errs[0].stack)

	failing := RecoveryMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Len(t, rec.errs, 2)
	assert.Equal(t, "/x", rec.errs[1].path)
}

func TestHTTPMetricsUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "test")

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/properties/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/properties/"+id, nil))
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/properties/{id}", "200")))
}

func TestRequestLoggingSetsRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	RequestLogging(identityEcho()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	RequestLogging(identityEcho()).ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
