package services

import (
	"context"
	"time"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type OnboardingService struct {
	onboarding repositories.OnboardingRepository
}

func NewOnboardingService(onboarding repositories.OnboardingRepository) *OnboardingService {
	return &OnboardingService{onboarding: onboarding}
}

func (s *OnboardingService) Get(ctx context.Context, caller *middleware.Identity) (*dtos.OnboardingResponse, error) {
	o, err := s.load(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := dtos.NewOnboardingResponse(o)
	return &out, nil
}

// CompleteStep is idempotent. Finishing the last required step stamps
// completed_at.
func (s *OnboardingService) CompleteStep(ctx context.Context, caller *middleware.Identity, step models.OnboardingStep, expected *int64) (*dtos.OnboardingResponse, error) {
	current, err := s.load(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !current.StepAllowed(step) {
		return nil, utils.BadRequest("Unknown onboarding step "+string(step), nil)
	}
	if current.HasCompleted(step) {
		out := dtos.NewOnboardingResponse(current)
		return &out, nil
	}

	updated, err := s.onboarding.Mutate(ctx, caller.UserID, expected, func(o *models.OnboardingState) (*models.AuditLog, error) {
		if !o.HasCompleted(step) {
			o.CompletedSteps = append(o.CompletedSteps, step)
		}
		if o.CurrentStep() == "" && o.CompletedAt == nil {
			now := time.Now().UTC()
			o.CompletedAt = &now
		}
		return nil, nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(o *models.OnboardingState) any { return dtos.NewOnboardingResponse(o) })
	}
	if updated.CompletedAt != nil {
		utils.Logger.WithField("user_id", caller.UserID).Info("Onboarding completed")
	}
	out := dtos.NewOnboardingResponse(updated)
	return &out, nil
}

// load returns the caller's checklist, moved onto the caller's current role
// when the role changed since the row was created. Steps the new role does
// not have are dropped.
func (s *OnboardingService) load(ctx context.Context, caller *middleware.Identity) (*models.OnboardingState, error) {
	o, err := s.onboarding.GetOrCreate(ctx, caller.UserID, caller.Role)
	if err != nil {
		return nil, utils.Internal("Failed to load onboarding", err)
	}
	if o.Role == caller.Role {
		return o, nil
	}

	updated, err := s.onboarding.Mutate(ctx, caller.UserID, nil, func(row *models.OnboardingState) (*models.AuditLog, error) {
		row.Role = caller.Role
		kept := make([]models.OnboardingStep, 0, len(row.CompletedSteps))
		for _, step := range row.CompletedSteps {
			if row.StepAllowed(step) {
				kept = append(kept, step)
			}
		}
		row.CompletedSteps = kept
		switch {
		case row.CurrentStep() != "":
			row.CompletedAt = nil
		case row.CompletedAt == nil:
			now := time.Now().UTC()
			row.CompletedAt = &now
		}
		return nil, nil
	})
	if err != nil {
		return nil, utils.Internal("Failed to update onboarding role", err)
	}
	utils.Logger.WithField("user_id", caller.UserID).Infof("Onboarding moved from %s to %s checklist", o.Role, caller.Role)
	return updated, nil
}
