package seeding

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// Fixed ids so reseeding is a no-op and hosted-auth test users can be
// created with matching subjects.
const (
	DefaultAdminID  = "11111111-2222-3333-4444-555555555555"
	DefaultOwnerID  = "22222222-2222-2222-2222-222222222222"
	DefaultTenantID = "33333333-3333-3333-3333-333333333333"
)

type demoProfile struct {
	id       string
	email    string
	fullName string
	phone    string
	role     models.UserRole
}

var demoProfiles = []demoProfile{
	{DefaultAdminID, "admin@palmsestate.test", "Palms Admin", "+13055550100", models.RoleAdmin},
	{DefaultOwnerID, "owner@palmsestate.test", "Olivia Owner", "+13055550101", models.RoleOwner},
	{DefaultTenantID, "tenant@palmsestate.test", "Theo Tenant", "+13055550102", models.RoleTenant},
}

// SeedDefaultProfiles creates the demo admin, owner and tenant.
func SeedDefaultProfiles(ctx context.Context, profileRepo repositories.ProfileRepository) error {
	for _, d := range demoProfiles {
		id := uuid.MustParse(d.id)
		existing, err := profileRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("check existing %s profile: %w", d.role, err)
		}
		if existing != nil {
			utils.Logger.Infof("seeding: %s profile already present (id=%s); skipping", d.role, id)
			continue
		}
		if _, err := profileRepo.EnsureExists(ctx, &models.Profile{
			ID:       id,
			Email:    d.email,
			FullName: d.fullName,
			Phone:    utils.Ptr(d.phone),
			Role:     d.role,
		}); err != nil {
			return fmt.Errorf("create %s profile: %w", d.role, err)
		}
		utils.Logger.Infof("seeding: created %s profile (id=%s, email=%s)", d.role, id, d.email)
	}
	return nil
}
