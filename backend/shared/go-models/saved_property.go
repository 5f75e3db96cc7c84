package models

import (
	"time"

	"github.com/google/uuid"
)

type SavedProperty struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	PropertyID uuid.UUID `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}
