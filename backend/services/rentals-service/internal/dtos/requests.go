package dtos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// ───────────────────────────────
// Profiles
// ───────────────────────────────

type UpdateProfileRequest struct {
	FullName   string  `json:"full_name" validate:"required,min=1,max=120"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	AvatarURL  *string `json:"avatar_url,omitempty" validate:"omitempty,url,max=2048"`
	RowVersion *int64  `json:"row_version,omitempty"`
}

type ChangeRoleRequest struct {
	Role       models.UserRole `json:"role" validate:"required,oneof=tenant owner admin"`
	RowVersion *int64          `json:"row_version,omitempty"`
}

// ───────────────────────────────
// Properties
// ───────────────────────────────

// PropertyRequest is the body of create and full update.
type PropertyRequest struct {
	Title                string              `json:"title" validate:"required,min=3,max=140"`
	Description          string              `json:"description" validate:"max=10000"`
	Address              string              `json:"address" validate:"required,max=200"`
	City                 string              `json:"city" validate:"required,max=100"`
	State                string              `json:"state" validate:"required,max=40"`
	ZipCode              string              `json:"zip_code" validate:"required,max=10"`
	Latitude             *float64            `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude            *float64            `json:"longitude,omitempty" validate:"omitempty,longitude"`
	PropertyType         models.PropertyType `json:"property_type" validate:"required,oneof=apartment house condo townhouse studio"`
	Bedrooms             int                 `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms            float64             `json:"bathrooms" validate:"min=0,max=50"`
	SquareFeet           *int                `json:"square_feet,omitempty" validate:"omitempty,min=1"`
	MonthlyRentCents     int64               `json:"monthly_rent_cents" validate:"required,min=1"`
	SecurityDepositCents int64               `json:"security_deposit_cents" validate:"min=0"`
	ApplicationFeeCents  int64               `json:"application_fee_cents" validate:"min=0"`
	AvailableFrom        *time.Time          `json:"available_from,omitempty"`
	PetsAllowed          bool                `json:"pets_allowed"`
	Amenities            []string            `json:"amenities" validate:"max=50,dive,min=1,max=60"`
	ImageURLs            []string            `json:"image_urls" validate:"max=30,dive,url"`
	Publish              bool                `json:"publish"`
	RowVersion           *int64              `json:"row_version,omitempty"`
}

type StatusChangeRequest struct {
	Status     string `json:"status" validate:"required"`
	RowVersion *int64 `json:"row_version,omitempty"`
}

// PropertySearchQuery is parsed from the query string of GET /properties.
type PropertySearchQuery struct {
	City         string
	State        string
	PropertyType models.PropertyType
	MinRentCents int64
	MaxRentCents int64
	MinBedrooms  int
	MinBathrooms float64
	PetsAllowed  *bool
	Query        string
	Lat          *float64
	Lng          *float64
	RadiusMiles  float64
	Sort         string
}

// ───────────────────────────────
// Applications
// ───────────────────────────────

type SubmitApplicationRequest struct {
	PropertyID         uuid.UUID `json:"property_id" validate:"required"`
	FullName           string    `json:"full_name" validate:"required,min=2,max=120"`
	Email              string    `json:"email" validate:"required,email,max=254"`
	Phone              string    `json:"phone" validate:"required,max=32"`
	Employer           *string   `json:"employer,omitempty" validate:"omitempty,max=120"`
	JobTitle           *string   `json:"job_title,omitempty" validate:"omitempty,max=120"`
	MonthlyIncomeCents int64     `json:"monthly_income_cents" validate:"min=0"`
	MoveInDate         time.Time `json:"move_in_date" validate:"required"`
	Occupants          int       `json:"occupants" validate:"min=1,max=20"`
	HasPets            bool      `json:"has_pets"`
	PetDetails         *string   `json:"pet_details,omitempty" validate:"omitempty,max=500"`
	Notes              *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	SSNLast4           *string   `json:"ssn_last4,omitempty" validate:"omitempty,len=4,numeric"`
}

type TransitionRequest struct {
	To         string  `json:"to" validate:"required"`
	Reason     *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	RowVersion *int64  `json:"row_version,omitempty"`
}

// ───────────────────────────────
// Leases
// ───────────────────────────────

type CreateLeaseRequest struct {
	StartDate  time.Time `json:"start_date" validate:"required"`
	TermMonths int       `json:"term_months" validate:"required,min=1,max=36"`
	RentDueDay int       `json:"rent_due_day" validate:"required,min=1,max=28"`
}

type SignLeaseRequest struct {
	SignatureName string `json:"signature_name" validate:"required,min=2,max=120"`
	ContentHash   string `json:"content_hash" validate:"required,len=64,hexadecimal"`
	RowVersion    *int64 `json:"row_version,omitempty"`
}

type VoidLeaseRequest struct {
	Reason     string `json:"reason" validate:"required,min=3,max=1000"`
	RowVersion *int64 `json:"row_version,omitempty"`
}

type RowVersionRequest struct {
	RowVersion *int64 `json:"row_version,omitempty"`
}

// ───────────────────────────────
// Maintenance
// ───────────────────────────────

type CreateMaintenanceRequest struct {
	PropertyID  uuid.UUID                  `json:"property_id" validate:"required"`
	Title       string                     `json:"title" validate:"required,min=3,max=140"`
	Description string                     `json:"description" validate:"required,min=3,max=5000"`
	Category    models.MaintenanceCategory `json:"category,omitempty" validate:"omitempty,oneof=plumbing electrical appliance hvac pest structural other"`
	Priority    models.MaintenancePriority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high emergency"`
	ImageURLs   []string                   `json:"image_urls" validate:"max=10,dive,url"`
}

// ───────────────────────────────
// Messaging
// ───────────────────────────────

type StartThreadRequest struct {
	PropertyID uuid.UUID `json:"property_id" validate:"required"`
	Subject    string    `json:"subject" validate:"required,min=1,max=200"`
	Body       string    `json:"body" validate:"required,min=1,max=4000"`
}

type PostMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// ───────────────────────────────
// Documents
// ───────────────────────────────

type CreateDocumentRequest struct {
	Kind          models.DocumentKind `json:"kind" validate:"required,oneof=id_proof income_proof reference lease other"`
	FileName      string              `json:"file_name" validate:"required,min=1,max=255"`
	ContentType   string              `json:"content_type" validate:"required"`
	SizeBytes     int64               `json:"size_bytes" validate:"required,min=1"`
	ApplicationID *uuid.UUID          `json:"application_id,omitempty"`
	LeaseID       *uuid.UUID          `json:"lease_id,omitempty"`
}

// ───────────────────────────────
// Inquiries
// ───────────────────────────────

type CreateInquiryRequest struct {
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Name       string     `json:"name" validate:"required,min=1,max=120"`
	Email      string     `json:"email" validate:"required,max=254"`
	Phone      *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Message    string     `json:"message" validate:"required,min=5,max=5000"`
}

type InquiryStatusRequest struct {
	Status models.InquiryStatus `json:"status" validate:"required,oneof=new responded closed"`
}

// ───────────────────────────────
// Error logs / admin
// ───────────────────────────────

type ErrorReportRequest struct {
	Message string           `json:"message" validate:"required,min=1,max=4000"`
	Stack   *string          `json:"stack,omitempty" validate:"omitempty,max=20000"`
	Path    *string          `json:"path,omitempty" validate:"omitempty,max=2048"`
	Context *json.RawMessage `json:"context,omitempty"`
}

// SendEmailRequest is the body of the send-email function.
type SendEmailRequest struct {
	To      string  `json:"to" validate:"required,email"`
	ToName  string  `json:"to_name,omitempty" validate:"max=120"`
	Subject string  `json:"subject" validate:"required,min=1,max=300"`
	HTML    *string `json:"html,omitempty"`
	Text    *string `json:"text,omitempty"`
}
