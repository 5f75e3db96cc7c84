package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// ServerErrorRecorder persists server-side failures, normally into the
// error log table.
type ServerErrorRecorder interface {
	RecordServerError(ctx context.Context, userID *uuid.UUID, path, message string, stack *string)
}

// RecoveryMiddleware turns panics into 500 responses. Panics and every 5xx
// response are passed to rec when it is non-nil.
func RecoveryMiddleware(rec ServerErrorRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					if sr.status >= http.StatusInternalServerError && rec != nil {
						rec.RecordServerError(r.Context(), userIDPtr(r.Context()), r.URL.Path,
							fmt.Sprintf("%s %s answered %d", r.Method, r.URL.Path, sr.status), nil)
					}
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				stack := string(debug.Stack())
				utils.Logger.WithFields(logrus.Fields{
					"panic": p,
					"path":  r.URL.Path,
				}).Error("Recovered from panic")
				if rec != nil {
					rec.RecordServerError(r.Context(), userIDPtr(r.Context()), r.URL.Path,
						fmt.Sprintf("panic: %v", p), &stack)
				}
				if !sr.written {
					utils.RespondErrorWithCode(
						sr, http.StatusInternalServerError, utils.ErrCodeInternal,
						"An unexpected error occurred", nil,
					)
				}
			}()
			next.ServeHTTP(sr, r)
		})
	}
}

func userIDPtr(ctx context.Context) *uuid.UUID {
	if id, ok := UserIDFromContext(ctx); ok {
		return &id
	}
	return nil
}
