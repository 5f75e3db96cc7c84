package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst, false) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error",
			shared_dtos.NewValidationErrorDetails(err), err,
		)
		return false
	}
	return true
}

// decodeJSON accepts an empty body when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	return true
}

// caller answers 401 when the auth middleware left no identity.
func caller(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil)
		return nil, false
	}
	return id, true
}

// optionalCaller is nil for anonymous requests.
func optionalCaller(r *http.Request) *middleware.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid "+name, nil, err)
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, name+" must be a UUID", nil, err)
		return nil, false
	}
	return &id, true
}

func pagination(w http.ResponseWriter, r *http.Request) (utils.Pagination, bool) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return p, false
	}
	return p, true
}

// csvQuery splits ?name=a,b and repeated ?name= values.
func csvQuery[T ~string](r *http.Request, name string) []T {
	var out []T
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, T(part))
			}
		}
	}
	return out
}

// expectedVersion prefers the body's row_version, then an If-Match header.
func expectedVersion(w http.ResponseWriter, r *http.Request, fromBody *int64) (*int64, bool) {
	if fromBody != nil {
		return fromBody, true
	}
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("row_version"))
	}
	if raw == "" || raw == "*" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "If-Match must be a row version", nil, err)
		return nil, false
	}
	return &n, true
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, status, payload)
}
