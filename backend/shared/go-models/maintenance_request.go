package models

import (
	"time"

	"github.com/google/uuid"
)

type MaintenanceCategory string

const (
	MaintenancePlumbing   MaintenanceCategory = "plumbing"
	MaintenanceElectrical MaintenanceCategory = "electrical"
	MaintenanceAppliance  MaintenanceCategory = "appliance"
	MaintenanceHVAC       MaintenanceCategory = "hvac"
	MaintenancePest       MaintenanceCategory = "pest"
	MaintenanceStructural MaintenanceCategory = "structural"
	MaintenanceOther      MaintenanceCategory = "other"
)

var MaintenanceCategories = []MaintenanceCategory{
	MaintenancePlumbing, MaintenanceElectrical, MaintenanceAppliance, MaintenanceHVAC,
	MaintenancePest, MaintenanceStructural, MaintenanceOther,
}

type MaintenancePriority string

const (
	PriorityLow       MaintenancePriority = "low"
	PriorityNormal    MaintenancePriority = "normal"
	PriorityHigh      MaintenancePriority = "high"
	PriorityEmergency MaintenancePriority = "emergency"
)

var MaintenancePriorities = []MaintenancePriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityEmergency}

type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "open"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceResolved   MaintenanceStatus = "resolved"
	MaintenanceClosed     MaintenanceStatus = "closed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

var MaintenanceStatusMachine = NewStateMachine("maintenance", []Transition[MaintenanceStatus]{
	{MaintenanceOpen, MaintenanceInProgress, []Actor{ActorOwner, ActorAdmin}},
	{MaintenanceOpen, MaintenanceCancelled, []Actor{ActorTenant, ActorAdmin}},
	{MaintenanceInProgress, MaintenanceResolved, []Actor{ActorOwner, ActorAdmin}},
	{MaintenanceResolved, MaintenanceClosed, []Actor{ActorTenant, ActorOwner, ActorAdmin}},
	{MaintenanceResolved, MaintenanceInProgress, []Actor{ActorTenant}},
})

type MaintenanceRequest struct {
	Versioned

	ID            uuid.UUID           `json:"id"`
	PropertyID    uuid.UUID           `json:"property_id"`
	LeaseID       uuid.UUID           `json:"lease_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Category      MaintenanceCategory `json:"category"`
	Priority      MaintenancePriority `json:"priority"`
	Status        MaintenanceStatus   `json:"status"`
	OwnerNotes    *string             `json:"owner_notes,omitempty"`
	ImageURLs     []string            `json:"image_urls"`
	TriageSummary *string             `json:"triage_summary,omitempty"`
	ResolvedAt    *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (m *MaintenanceRequest) GetID() string { return m.ID.String() }

type MaintenanceFilters struct {
	TenantID *uuid.UUID
	OwnerID  *uuid.UUID
	Statuses []MaintenanceStatus
	Priority MaintenancePriority
	Limit    int
	Offset   int
}
