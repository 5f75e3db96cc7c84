package testhelpers

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// UniquePhone generates a unique phone number for testing.
func UniquePhone() string {
	return fmt.Sprintf("+1555%07d", rand.New(rand.NewSource(time.Now().UnixNano())).Int31n(1e7))
}

// UniqueEmail generates a unique email for testing.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@palmsestate.test", prefix, time.Now().UnixNano())
}

// CreateTestProfile persists a profile with the given role.
func (h *TestHelper) CreateTestProfile(role models.UserRole, emailPrefix string) *models.Profile {
	p := &models.Profile{
		ID:       uuid.New(),
		Email:    UniqueEmail(emailPrefix),
		FullName: "Test " + string(role),
		Phone:    utils.Ptr(UniquePhone()),
		Role:     role,
	}
	out, err := h.Store.Profiles.EnsureExists(h.Ctx, p)
	require.NoError(h.T, err, "Failed to create test profile")
	return out
}

// CreateTestProperty persists an available listing owned by ownerID.
func (h *TestHelper) CreateTestProperty(ownerID uuid.UUID) *models.Property {
	lat, lng := 25.7617, -80.1918
	p := &models.Property{
		ID:                   uuid.New(),
		OwnerID:              ownerID,
		Title:                "Bayfront Two Bedroom",
		Description:          "Bright corner unit with a balcony",
		Address:              "100 Biscayne Blvd",
		City:                 "Miami",
		State:                "FL",
		ZipCode:              "33132",
		Latitude:             &lat,
		Longitude:            &lng,
		TimeZone:             "America/New_York",
		PropertyType:         models.PropertyTypeApartment,
		Bedrooms:             2,
		Bathrooms:            2,
		MonthlyRentCents:     250000,
		SecurityDepositCents: 250000,
		ApplicationFeeCents:  5000,
		PetsAllowed:          true,
		Amenities:            []string{"pool", "gym"},
		ImageURLs:            []string{},
		Status:               models.PropertyStatusAvailable,
	}
	require.NoError(h.T, h.Store.Properties.Create(h.Ctx, p), "Failed to create test property")
	return p
}

// CreateTestApplication persists an application in the given status.
func (h *TestHelper) CreateTestApplication(propertyID, tenantID uuid.UUID, status models.ApplicationStatus) *models.Application {
	a := &models.Application{
		ID:                 uuid.New(),
		PropertyID:         propertyID,
		TenantID:           tenantID,
		Status:             status,
		FullName:           "Tess Tenant",
		Email:              UniqueEmail("applicant"),
		Phone:              UniquePhone(),
		MonthlyIncomeCents: 900000,
		MoveInDate:         time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour),
		Occupants:          1,
		SSNLast4:           utils.Ptr("1234"),
	}
	if status == models.ApplicationPaymentPending {
		a.PaymentDueAt = utils.Ptr(time.Now().UTC().Add(72 * time.Hour))
	}
	require.NoError(h.T, h.Store.Applications.Create(h.Ctx, a), "Failed to create test application")
	return a
}

// CreateTestLease persists a lease for an application in the given status.
func (h *TestHelper) CreateTestLease(app *models.Application, ownerID uuid.UUID, status models.LeaseStatus) *models.Lease {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	body := "Residential lease agreement for " + app.FullName
	l := &models.Lease{
		ID:                   uuid.New(),
		ApplicationID:        app.ID,
		PropertyID:           app.PropertyID,
		TenantID:             app.TenantID,
		OwnerID:              ownerID,
		Status:               status,
		StartDate:            start,
		EndDate:              start.AddDate(1, 0, -1),
		MonthlyRentCents:     250000,
		SecurityDepositCents: 250000,
		RentDueDay:           1,
		Body:                 body,
		ContentHash:          utils.ContentHash(body),
	}
	require.NoError(h.T, h.Store.Leases.Create(h.Ctx, l), "Failed to create test lease")
	return l
}
