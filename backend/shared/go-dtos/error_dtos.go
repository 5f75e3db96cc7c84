// backend/shared/go-dtos/error_dtos.go
package dtos

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorDetail is a shared DTO for structured validation error responses.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewValidationErrorDetails flattens validator errors into per-field
// details. Non-validator errors yield nil.
func NewValidationErrorDetails(err error) []ValidationErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]ValidationErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationErrorDetail{
			Field:   toSnake(fe.Field()),
			Message: validationMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return "must be a UUID"
	case "url":
		return "must be a URL"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// toSnake turns struct field names like MonthlyRentCents into
// monthly_rent_cents so details line up with JSON names.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
