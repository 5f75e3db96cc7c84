package middleware

import (
	"net/http"
)

// OptionalAuthMiddleware is identical to AuthMiddleware
// except that it lets the request through if *no* token is present.
// A token that is present but invalid is still rejected.
func OptionalAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, _ := extractAccessToken(r) // ignore error here
			if tokenStr == "" {
				next.ServeHTTP(w, r) // unauthenticated – allowed
				return
			}

			id, err := ValidateToken(tokenStr, secret)
			if err != nil {
				respondInvalidToken(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
