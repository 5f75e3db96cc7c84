package dtos

import (
	"time"

	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type HealthCheckResponse struct {
	Status string `json:"status"`
}

// PaymentIntentResponse is what create-payment-intent returns.
type PaymentIntentResponse struct {
	PaymentID    string               `json:"payment_id"`
	ClientSecret string               `json:"client_secret"`
	AmountCents  int64                `json:"amount_cents"`
	Currency     string               `json:"currency"`
	Status       models.PaymentStatus `json:"status"`
	Period       *string              `json:"period,omitempty"`
}

type ThreadResponse struct {
	models.Thread
	Property     *shared_dtos.PropertySummary `json:"property,omitempty"`
	Counterpart  *shared_dtos.Profile         `json:"counterpart,omitempty"`
	FirstMessage *models.Message              `json:"message,omitempty"`
}

type SaveResult struct {
	PropertyID string `json:"property_id"`
	Saved      bool   `json:"saved"`
	Created    bool   `json:"created"`
}

type DocumentUploadResponse struct {
	Document  *models.Document `json:"document"`
	UploadURL string           `json:"upload_url"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type DocumentDownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type OnboardingResponse struct {
	models.OnboardingState
	RequiredSteps []models.OnboardingStep `json:"required_steps"`
	CurrentStep   *models.OnboardingStep  `json:"current_step,omitempty"`
	Completed     bool                    `json:"completed"`
}

func NewOnboardingResponse(o *models.OnboardingState) OnboardingResponse {
	out := OnboardingResponse{
		OnboardingState: *o,
		RequiredSteps:   models.OnboardingSteps[o.Role],
		Completed:       o.CompletedAt != nil,
	}
	if out.CompletedSteps == nil {
		out.CompletedSteps = []models.OnboardingStep{}
	}
	if step := o.CurrentStep(); step != "" {
		out.CurrentStep = &step
	}
	return out
}

type AdminStatsResponse struct {
	ApplicationsByStatus  map[models.ApplicationStatus]int `json:"applications_by_status"`
	PropertiesByStatus    map[models.PropertyStatus]int    `json:"properties_by_status"`
	PaymentsSucceededCent int64                            `json:"payments_succeeded_cents"`
	OpenMaintenance       int                              `json:"open_maintenance_requests"`
}

type MessageEvent struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id"`
	Message  *models.Message `json:"message"`
}
