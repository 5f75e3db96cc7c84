package seeding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// DemoPropertyIDs are the listings created by SeedDemoProperties.
var DemoPropertyIDs = []uuid.UUID{
	uuid.MustParse("44444444-0000-0000-0000-000000000001"),
	uuid.MustParse("44444444-0000-0000-0000-000000000002"),
	uuid.MustParse("44444444-0000-0000-0000-000000000003"),
}

func demoProperties(ownerID uuid.UUID) []*models.Property {
	return []*models.Property{
		{
			ID:                   DemoPropertyIDs[0],
			OwnerID:              ownerID,
			Title:                "Brickell Skyline Two Bedroom",
			Description:          "Corner unit with floor-to-ceiling windows, walking distance to Mary Brickell Village.",
			Address:              "1100 S Miami Ave",
			City:                 "Miami",
			State:                "FL",
			ZipCode:              "33130",
			Latitude:             utils.Ptr(25.7629),
			Longitude:            utils.Ptr(-80.1936),
			TimeZone:             "America/New_York",
			PropertyType:         models.PropertyTypeApartment,
			Bedrooms:             2,
			Bathrooms:            2,
			SquareFeet:           utils.Ptr(1150),
			MonthlyRentCents:     345000,
			SecurityDepositCents: 345000,
			ApplicationFeeCents:  7500,
			PetsAllowed:          true,
			Amenities:            []string{"pool", "gym", "concierge"},
			ImageURLs:            []string{},
			Status:               models.PropertyStatusAvailable,
		},
		{
			ID:                   DemoPropertyIDs[1],
			OwnerID:              ownerID,
			Title:                "Coral Gables Family House",
			Description:          "Four bedroom house on a quiet street with a fenced yard.",
			Address:              "615 Alhambra Cir",
			City:                 "Coral Gables",
			State:                "FL",
			ZipCode:              "33134",
			Latitude:             utils.Ptr(25.7505),
			Longitude:            utils.Ptr(-80.2630),
			TimeZone:             "America/New_York",
			PropertyType:         models.PropertyTypeHouse,
			Bedrooms:             4,
			Bathrooms:            3,
			SquareFeet:           utils.Ptr(2600),
			MonthlyRentCents:     620000,
			SecurityDepositCents: 620000,
			ApplicationFeeCents:  10000,
			PetsAllowed:          true,
			Amenities:            []string{"garage", "yard", "washer_dryer"},
			ImageURLs:            []string{},
			Status:               models.PropertyStatusAvailable,
		},
		{
			ID:                   DemoPropertyIDs[2],
			OwnerID:              ownerID,
			Title:                "Wynwood Studio Loft",
			Description:          "Open studio above the galleries. Draft until photos are ready.",
			Address:              "250 NW 23rd St",
			City:                 "Miami",
			State:                "FL",
			ZipCode:              "33127",
			Latitude:             utils.Ptr(25.7990),
			Longitude:            utils.Ptr(-80.1990),
			TimeZone:             "America/New_York",
			PropertyType:         models.PropertyTypeStudio,
			Bedrooms:             0,
			Bathrooms:            1,
			MonthlyRentCents:     185000,
			SecurityDepositCents: 185000,
			ApplicationFeeCents:  5000,
			Amenities:            []string{"bike_storage"},
			ImageURLs:            []string{},
			Status:               models.PropertyStatusDraft,
		},
	}
}

// SeedDemoProperties creates the demo listings for the default owner.
func SeedDemoProperties(ctx context.Context, propRepo repositories.PropertyRepository) error {
	ownerID := uuid.MustParse(DefaultOwnerID)
	for _, p := range demoProperties(ownerID) {
		existing, err := propRepo.GetByID(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("check existing property %s: %w", p.ID, err)
		}
		if existing != nil {
			utils.Logger.Infof("seeding: property %s already present; skipping", p.ID)
			continue
		}
		if err := propRepo.Create(ctx, p); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) || repositories.IsUniqueViolation(err, "") {
				utils.Logger.Infof("seeding: property (id=%s) already exists; skipping", p.ID)
				continue
			}
			return fmt.Errorf("create demo property %s: %w", p.ID, err)
		}
		utils.Logger.Infof("seeding: created property %q (id=%s)", p.Title, p.ID)
	}
	return nil
}

// SeedAll creates the demo profiles and then their listings.
func SeedAll(ctx context.Context, profileRepo repositories.ProfileRepository, propRepo repositories.PropertyRepository) error {
	if err := SeedDefaultProfiles(ctx, profileRepo); err != nil {
		return err
	}
	return SeedDemoProperties(ctx, propRepo)
}
