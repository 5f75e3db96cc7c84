package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type SavedPropertyService struct {
	saved    repositories.SavedPropertyRepository
	listings *PropertyService
}

func NewSavedPropertyService(saved repositories.SavedPropertyRepository, listings *PropertyService) *SavedPropertyService {
	return &SavedPropertyService{saved: saved, listings: listings}
}

// Save is idempotent. Created reports whether this call added the row.
func (s *SavedPropertyService) Save(ctx context.Context, caller *middleware.Identity, propertyID uuid.UUID) (dtos.SaveResult, error) {
	if _, err := s.listings.load(ctx, propertyID); err != nil {
		return dtos.SaveResult{}, err
	}
	created, err := s.saved.Save(ctx, caller.UserID, propertyID)
	if err != nil {
		return dtos.SaveResult{}, utils.Internal("Failed to save property", err)
	}
	return dtos.SaveResult{PropertyID: propertyID.String(), Saved: true, Created: created}, nil
}

// Remove is idempotent.
func (s *SavedPropertyService) Remove(ctx context.Context, caller *middleware.Identity, propertyID uuid.UUID) (dtos.SaveResult, error) {
	if err := s.saved.Remove(ctx, caller.UserID, propertyID); err != nil {
		return dtos.SaveResult{}, utils.Internal("Failed to remove saved property", err)
	}
	return dtos.SaveResult{PropertyID: propertyID.String(), Saved: false}, nil
}

func (s *SavedPropertyService) List(ctx context.Context, caller *middleware.Identity, page utils.Pagination) (utils.PageResponse[shared_dtos.PropertySummary], error) {
	ids, total, err := s.saved.ListPropertyIDs(ctx, caller.UserID, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[shared_dtos.PropertySummary]{}, utils.Internal("Failed to list saved properties", err)
	}
	items, err := s.listings.Summaries(ctx, ids)
	if err != nil {
		return utils.PageResponse[shared_dtos.PropertySummary]{}, err
	}
	return utils.NewPageResponse(items, total, page), nil
}
