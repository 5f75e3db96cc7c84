package dtos

import (
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// PropertySummary is the card shown in search results and saved lists.
type PropertySummary struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	City             string                `json:"city"`
	State            string                `json:"state"`
	PropertyType     models.PropertyType   `json:"property_type"`
	Bedrooms         int                   `json:"bedrooms"`
	Bathrooms        float64               `json:"bathrooms"`
	MonthlyRentCents int64                 `json:"monthly_rent_cents"`
	Status           models.PropertyStatus `json:"status"`
	CoverImageURL    *string               `json:"cover_image_url,omitempty"`
	DistanceMiles    *float64              `json:"distance_miles,omitempty"`
}

func NewPropertySummary(p models.Property) PropertySummary {
	s := PropertySummary{
		ID:               p.ID.String(),
		Title:            p.Title,
		City:             p.City,
		State:            p.State,
		PropertyType:     p.PropertyType,
		Bedrooms:         p.Bedrooms,
		Bathrooms:        p.Bathrooms,
		MonthlyRentCents: p.MonthlyRentCents,
		Status:           p.Status,
	}
	if len(p.ImageURLs) > 0 {
		cover := p.ImageURLs[0]
		s.CoverImageURL = &cover
	}
	return s
}
