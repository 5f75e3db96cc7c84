package models

import (
	"time"

	"github.com/google/uuid"
)

type PropertyType string

const (
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeCondo     PropertyType = "condo"
	PropertyTypeTownhouse PropertyType = "townhouse"
	PropertyTypeStudio    PropertyType = "studio"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeCondo, PropertyTypeTownhouse, PropertyTypeStudio:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyStatusDraft     PropertyStatus = "draft"
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusPending   PropertyStatus = "pending"
	PropertyStatusRented    PropertyStatus = "rented"
	PropertyStatusArchived  PropertyStatus = "archived"
)

// PropertyStatusMachine covers manual listing changes by owners/admins and
// the automatic moves made when an application is approved or a lease is
// fully signed.
var PropertyStatusMachine = NewStateMachine("property", []Transition[PropertyStatus]{
	{PropertyStatusDraft, PropertyStatusAvailable, []Actor{ActorOwner, ActorAdmin}},
	{PropertyStatusDraft, PropertyStatusArchived, []Actor{ActorOwner, ActorAdmin}},
	{PropertyStatusAvailable, PropertyStatusDraft, []Actor{ActorOwner, ActorAdmin}},
	{PropertyStatusAvailable, PropertyStatusPending, []Actor{ActorOwner, ActorAdmin, ActorSystem}},
	{PropertyStatusAvailable, PropertyStatusArchived, []Actor{ActorOwner, ActorAdmin}},
	{PropertyStatusPending, PropertyStatusAvailable, []Actor{ActorOwner, ActorAdmin, ActorSystem}},
	{PropertyStatusPending, PropertyStatusRented, []Actor{ActorOwner, ActorAdmin, ActorSystem}},
	{PropertyStatusRented, PropertyStatusAvailable, []Actor{ActorOwner, ActorAdmin}},
	{PropertyStatusRented, PropertyStatusArchived, []Actor{ActorOwner, ActorAdmin}},
})

type Property struct {
	Versioned

	ID                   uuid.UUID      `json:"id"`
	OwnerID              uuid.UUID      `json:"owner_id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Address              string         `json:"address"`
	City                 string         `json:"city"`
	State                string         `json:"state"`
	ZipCode              string         `json:"zip_code"`
	Latitude             *float64       `json:"latitude,omitempty"`
	Longitude            *float64       `json:"longitude,omitempty"`
	TimeZone             string         `json:"time_zone"`
	PropertyType         PropertyType   `json:"property_type"`
	Bedrooms             int            `json:"bedrooms"`
	Bathrooms            float64        `json:"bathrooms"`
	SquareFeet           *int           `json:"square_feet,omitempty"`
	MonthlyRentCents     int64          `json:"monthly_rent_cents"`
	SecurityDepositCents int64          `json:"security_deposit_cents"`
	ApplicationFeeCents  int64          `json:"application_fee_cents"`
	AvailableFrom        *time.Time     `json:"available_from,omitempty"`
	PetsAllowed          bool           `json:"pets_allowed"`
	Amenities            []string       `json:"amenities"`
	ImageURLs            []string       `json:"image_urls"`
	Status               PropertyStatus `json:"status"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            *time.Time     `json:"deleted_at,omitempty"`
}

func (p *Property) GetID() string { return p.ID.String() }

// ApplicationPaymentCents is what a tenant pays once pre-approved:
// the application fee plus the security deposit.
func (p *Property) ApplicationPaymentCents() int64 {
	return p.ApplicationFeeCents + p.SecurityDepositCents
}

// PropertyFilters narrows public and owner searches. Zero values mean "any".
type PropertyFilters struct {
	OwnerID      *uuid.UUID
	Statuses     []PropertyStatus
	City         string
	State        string
	PropertyType PropertyType
	MinRentCents int64
	MaxRentCents int64
	MinBedrooms  int
	MinBathrooms float64
	PetsAllowed  *bool
	Query        string
	Bounds       *GeoBounds
	Sort         string
	Limit        int
	Offset       int
}

// GeoBounds is a lat/lng box used to prefilter radius searches in SQL.
type GeoBounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}
