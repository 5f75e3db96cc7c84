package models

import (
	"time"

	"github.com/google/uuid"
)

type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "new"
	InquiryResponded InquiryStatus = "responded"
	InquiryClosed    InquiryStatus = "closed"
)

func (s InquiryStatus) Valid() bool {
	return s == InquiryNew || s == InquiryResponded || s == InquiryClosed
}

// Inquiry is a contact-form submission, optionally about a property.
type Inquiry struct {
	ID         uuid.UUID     `json:"id"`
	PropertyID *uuid.UUID    `json:"property_id,omitempty"`
	UserID     *uuid.UUID    `json:"user_id,omitempty"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      *string       `json:"phone,omitempty"`
	Message    string        `json:"message"`
	Status     InquiryStatus `json:"status"`
	ClientIP   string        `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
