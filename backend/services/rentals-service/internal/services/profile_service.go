package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type ProfileService struct {
	profiles repositories.ProfileRepository
	auth     AuthAdmin
}

func NewProfileService(profiles repositories.ProfileRepository, auth AuthAdmin) *ProfileService {
	return &ProfileService{profiles: profiles, auth: auth}
}

// Me returns the caller's profile, creating it from the token claims on
// first sight.
func (s *ProfileService) Me(ctx context.Context, caller *middleware.Identity) (*models.Profile, error) {
	name := caller.Email
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	p, err := s.profiles.EnsureExists(ctx, &models.Profile{
		ID:       caller.UserID,
		Email:    caller.Email,
		FullName: name,
		Role:     caller.Role,
	})
	if err != nil {
		return nil, utils.Internal("Failed to load profile", err)
	}
	return p, nil
}

func (s *ProfileService) UpdateMe(ctx context.Context, caller *middleware.Identity, req dtos.UpdateProfileRequest) (*models.Profile, error) {
	if _, err := s.Me(ctx, caller); err != nil {
		return nil, err
	}

	var phone *string
	if raw := utils.TrimPtr(req.Phone); raw != nil {
		n := utils.NormalizePhone(*raw)
		if !utils.IsE164(n) {
			return nil, utils.ValidationFailed("phone must be a valid phone number", utils.ErrInvalidPhone)
		}
		phone = &n
	}

	updated, err := s.profiles.Mutate(ctx, caller.UserID, req.RowVersion, func(p *models.Profile) (*models.AuditLog, error) {
		p.FullName = strings.TrimSpace(req.FullName)
		p.Phone = phone
		p.AvatarURL = utils.TrimPtr(req.AvatarURL)
		return auditEntry(caller, caller.Role.Actor(), models.AuditUpdate, models.TargetProfile, p.ID, nil), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(p *models.Profile) any { return p })
	}
	return updated, nil
}

// Public is the counterparty view of a user.
func (s *ProfileService) Public(ctx context.Context, id uuid.UUID) (*shared_dtos.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load profile", err)
	}
	if p == nil {
		return nil, utils.NotFound("Profile not found")
	}
	out := shared_dtos.NewProfileFromModel(*p)
	return &out, nil
}

// ChangeRole is admin-only. The hosted auth user is updated first so the
// next token the user gets carries the new role.
func (s *ProfileService) ChangeRole(ctx context.Context, caller *middleware.Identity, userID uuid.UUID, req dtos.ChangeRoleRequest) (*models.Profile, error) {
	if !isAdmin(caller) {
		return nil, utils.Forbidden("Admin access required")
	}
	if !req.Role.Valid() {
		return nil, utils.ValidationFailed("role must be tenant, owner or admin", nil)
	}
	if caller.UserID == userID {
		return nil, utils.Forbidden("Admins cannot change their own role")
	}
	current, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, utils.Internal("Failed to load profile", err)
	}
	if current == nil {
		return nil, utils.NotFound("Profile not found")
	}
	if current.Role == req.Role {
		return current, nil
	}

	if s.auth != nil {
		if err := s.auth.SetRole(ctx, userID, req.Role); err != nil {
			return nil, utils.ExternalFailure("Failed to update role with the auth provider", err)
		}
	}

	updated, err := s.profiles.Mutate(ctx, userID, req.RowVersion, func(p *models.Profile) (*models.AuditLog, error) {
		from := p.Role
		p.Role = req.Role
		return auditEntry(caller, models.ActorAdmin, models.AuditUpdate, models.TargetProfile, p.ID, map[string]any{
			"field": "role",
			"from":  from,
			"to":    req.Role,
		}), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(p *models.Profile) any { return p })
	}
	utils.Logger.WithField("user_id", userID).Infof("Role changed to %s", req.Role)
	return updated, nil
}
