package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type PropertyService struct {
	properties repositories.PropertyRepository
	geocoder   internal_utils.Geocoder
	cache      PropertyCache
}

// NewPropertyService takes a nil geocoder when geocoding is disabled.
func NewPropertyService(properties repositories.PropertyRepository, geocoder internal_utils.Geocoder, cache PropertyCache) *PropertyService {
	if cache == nil {
		cache = noopPropertyCache{}
	}
	return &PropertyService{properties: properties, geocoder: geocoder, cache: cache}
}

// ------------------------------------------------------------------
// Public browsing
// ------------------------------------------------------------------

// Search lists available properties. With lat/lng the bounding box is
// filtered in SQL and the exact radius by haversine distance here.
func (s *PropertyService) Search(ctx context.Context, q dtos.PropertySearchQuery, page utils.Pagination) (utils.PageResponse[shared_dtos.PropertySummary], error) {
	var out utils.PageResponse[shared_dtos.PropertySummary]

	if q.State != "" {
		st, err := utils.NormalizeUSState(q.State)
		if err != nil {
			return out, utils.ValidationFailed("state must be a US state", err)
		}
		q.State = st
	}
	if q.MinRentCents > 0 && q.MaxRentCents > 0 && q.MinRentCents > q.MaxRentCents {
		return out, utils.ValidationFailed("min_rent must not exceed max_rent", nil)
	}
	switch q.Sort {
	case "", "newest", "rent_asc", "rent_desc", "distance":
	default:
		return out, utils.ValidationFailed("sort must be newest, rent_asc, rent_desc or distance", nil)
	}
	if (q.Lat != nil) != (q.Lng != nil) {
		return out, utils.ValidationFailed("lat and lng must be given together", nil)
	}
	if q.Lat != nil {
		if !internal_utils.ValidCoordinates(*q.Lat, *q.Lng) {
			return out, utils.ValidationFailed("lat/lng out of range", nil)
		}
		if q.RadiusMiles <= 0 {
			q.RadiusMiles = constants.DefaultSearchRadiusMiles
		}
		if q.RadiusMiles > constants.MaxSearchRadiusMiles {
			q.RadiusMiles = constants.MaxSearchRadiusMiles
		}
	} else if q.Sort == "distance" {
		return out, utils.ValidationFailed("sort=distance requires lat and lng", nil)
	}

	cacheKey := searchCacheKey(q, page)
	if s.cache.Get(ctx, cacheKey, &out) {
		return out, nil
	}

	f := models.PropertyFilters{
		Statuses:     []models.PropertyStatus{models.PropertyStatusAvailable},
		City:         strings.TrimSpace(q.City),
		State:        q.State,
		PropertyType: q.PropertyType,
		MinRentCents: q.MinRentCents,
		MaxRentCents: q.MaxRentCents,
		MinBedrooms:  q.MinBedrooms,
		MinBathrooms: q.MinBathrooms,
		PetsAllowed:  q.PetsAllowed,
		Query:        strings.TrimSpace(q.Query),
		Sort:         q.Sort,
		Limit:        page.Limit(),
		Offset:       page.Offset(),
	}

	if q.Lat == nil {
		rows, total, err := s.properties.Search(ctx, f)
		if err != nil {
			return out, utils.Internal("Failed to search properties", err)
		}
		items := make([]shared_dtos.PropertySummary, 0, len(rows))
		for _, p := range rows {
			items = append(items, shared_dtos.NewPropertySummary(*p))
		}
		out = utils.NewPageResponse(items, total, page)
		s.cache.Set(ctx, cacheKey, out)
		return out, nil
	}

	bounds := internal_utils.BoundsAround(*q.Lat, *q.Lng, q.RadiusMiles)
	f.Bounds = &bounds
	f.Limit, f.Offset = constants.RadiusCandidateLimit, 0
	rows, _, err := s.properties.Search(ctx, f)
	if err != nil {
		return out, utils.Internal("Failed to search properties", err)
	}

	inRange := make([]shared_dtos.PropertySummary, 0, len(rows))
	for _, p := range rows {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		d := internal_utils.DistanceMiles(*q.Lat, *q.Lng, *p.Latitude, *p.Longitude)
		if d > q.RadiusMiles {
			continue
		}
		sum := shared_dtos.NewPropertySummary(*p)
		rounded := float64(int(d*10+0.5)) / 10
		sum.DistanceMiles = &rounded
		inRange = append(inRange, sum)
	}
	if q.Sort == "" || q.Sort == "distance" {
		sort.SliceStable(inRange, func(i, j int) bool { return *inRange[i].DistanceMiles < *inRange[j].DistanceMiles })
	}

	total := len(inRange)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}
	out = utils.NewPageResponse(inRange[start:end], total, page)
	s.cache.Set(ctx, cacheKey, out)
	return out, nil
}

// Get shows available listings to everyone; owners and admins also see
// their non-public rows.
func (s *PropertyService) Get(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Property, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PropertyStatusAvailable || s.canManage(caller, p) {
		return p, nil
	}
	return nil, utils.NotFound("Property not found")
}

// Summaries keeps the order of ids and skips deleted rows.
func (s *PropertyService) Summaries(ctx context.Context, ids []uuid.UUID) ([]shared_dtos.PropertySummary, error) {
	rows, err := s.properties.ListByIDs(ctx, ids)
	if err != nil {
		return nil, utils.Internal("Failed to load properties", err)
	}
	byID := make(map[uuid.UUID]*models.Property, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	out := make([]shared_dtos.PropertySummary, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.DeletedAt == nil {
			out = append(out, shared_dtos.NewPropertySummary(*p))
		}
	}
	return out, nil
}

// ------------------------------------------------------------------
// Owner portal
// ------------------------------------------------------------------

func (s *PropertyService) ListOwned(ctx context.Context, caller *middleware.Identity, statuses []models.PropertyStatus, page utils.Pagination) (utils.PageResponse[*models.Property], error) {
	ownerID := caller.UserID
	rows, total, err := s.properties.Search(ctx, models.PropertyFilters{
		OwnerID:  &ownerID,
		Statuses: statuses,
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	})
	if err != nil {
		return utils.PageResponse[*models.Property]{}, utils.Internal("Failed to list properties", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

func (s *PropertyService) Create(ctx context.Context, caller *middleware.Identity, req dtos.PropertyRequest) (*models.Property, error) {
	p := &models.Property{
		ID:      uuid.New(),
		OwnerID: caller.UserID,
		Status:  models.PropertyStatusDraft,
	}
	if req.Publish {
		p.Status = models.PropertyStatusAvailable
	}
	if err := s.apply(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.properties.Create(ctx, p); err != nil {
		return nil, utils.Internal("Failed to create property", err)
	}
	s.cache.Invalidate(ctx)
	utils.Logger.WithFields(logrus.Fields{"property_id": p.ID, "owner_id": p.OwnerID}).Info("Property created")
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.PropertyRequest) (*models.Property, error) {
	current, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	// geocoding happens outside the row lock
	draft := *current
	if err := s.apply(ctx, &draft, req); err != nil {
		return nil, err
	}

	updated, err := s.properties.Mutate(ctx, id, req.RowVersion, func(p *models.Property) (*models.AuditLog, error) {
		if p.DeletedAt != nil {
			return nil, utils.NotFound("Property not found")
		}
		status, version, created := p.Status, p.RowVersion, p.CreatedAt
		*p = draft
		p.Status, p.RowVersion, p.CreatedAt = status, version, created
		return auditEntry(caller, caller.Role.Actor(), models.AuditUpdate, models.TargetProperty, p.ID, nil), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(p *models.Property) any { return p })
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

func (s *PropertyService) ChangeStatus(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.StatusChangeRequest) (*models.Property, error) {
	to := models.PropertyStatus(req.Status)
	if !models.PropertyStatusMachine.Known(to) {
		return nil, utils.ValidationFailed(fmt.Sprintf("unknown property status %q", req.Status), nil)
	}
	if _, err := s.loadManaged(ctx, caller, id); err != nil {
		return nil, err
	}
	actor := caller.Role.Actor()
	updated, err := s.properties.Mutate(ctx, id, req.RowVersion, func(p *models.Property) (*models.AuditLog, error) {
		if err := models.PropertyStatusMachine.Check(p.Status, to, actor); err != nil {
			return nil, err
		}
		from := p.Status
		p.Status = to
		return auditEntry(caller, actor, models.AuditTransition, models.TargetProperty, p.ID, map[string]any{"from": from, "to": to}), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(p *models.Property) any { return p })
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

// Delete archives the listing and hides it everywhere. A listing with an
// approved applicant (pending) cannot be deleted.
func (s *PropertyService) Delete(ctx context.Context, caller *middleware.Identity, id uuid.UUID, expected *int64) error {
	if _, err := s.loadManaged(ctx, caller, id); err != nil {
		return err
	}
	actor := caller.Role.Actor()
	updated, err := s.properties.Mutate(ctx, id, expected, func(p *models.Property) (*models.AuditLog, error) {
		if p.Status != models.PropertyStatusArchived {
			if err := models.PropertyStatusMachine.Check(p.Status, models.PropertyStatusArchived, actor); err != nil {
				return nil, err
			}
		}
		now := time.Now().UTC()
		p.Status = models.PropertyStatusArchived
		p.DeletedAt = &now
		return auditEntry(caller, actor, models.AuditDelete, models.TargetProperty, p.ID, nil), nil
	})
	if err != nil {
		return mutationError(err, updated, func(p *models.Property) any { return p })
	}
	s.cache.Invalidate(ctx)
	return nil
}

// SystemTransition moves a listing on behalf of the application and lease
// workflows. Being in the target state already is not an error.
func (s *PropertyService) SystemTransition(ctx context.Context, id uuid.UUID, to models.PropertyStatus, reason string) error {
	_, err := s.properties.Mutate(ctx, id, nil, func(p *models.Property) (*models.AuditLog, error) {
		if err := models.PropertyStatusMachine.Check(p.Status, to, models.ActorSystem); err != nil {
			return nil, err
		}
		from := p.Status
		p.Status = to
		return auditEntry(systemIdentity, models.ActorSystem, models.AuditTransition, models.TargetProperty, p.ID, map[string]any{
			"from":   from,
			"to":     to,
			"reason": reason,
		}), nil
	})
	if errors.Is(err, models.ErrAlreadyInState) {
		return nil
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ListingChanged drops cached search pages after another workflow wrote a
// property row directly.
func (s *PropertyService) ListingChanged(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// ------------------------------------------------------------------
// internals
// ------------------------------------------------------------------

func (s *PropertyService) load(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load property", err)
	}
	if p == nil || p.DeletedAt != nil {
		return nil, utils.NotFound("Property not found")
	}
	return p, nil
}

func (s *PropertyService) loadManaged(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Property, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canManage(caller, p) {
		return nil, utils.Forbidden("You do not manage this property")
	}
	return p, nil
}

func (s *PropertyService) canManage(caller *middleware.Identity, p *models.Property) bool {
	if caller == nil {
		return false
	}
	return isAdmin(caller) || (caller.Role == models.RoleOwner && p.OwnerID == caller.UserID)
}

// apply copies the request onto p, normalizing the state and resolving
// coordinates and time zone.
func (s *PropertyService) apply(ctx context.Context, p *models.Property, req dtos.PropertyRequest) error {
	state, err := utils.NormalizeUSState(req.State)
	if err != nil {
		return utils.ValidationFailed("state must be a US state", err)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return utils.ValidationFailed("latitude and longitude must be given together", nil)
	}

	addressChanged := p.Address != req.Address || p.City != req.City || p.State != state || p.ZipCode != req.ZipCode

	p.Title = strings.TrimSpace(req.Title)
	p.Description = strings.TrimSpace(req.Description)
	p.Address = strings.TrimSpace(req.Address)
	p.City = strings.TrimSpace(req.City)
	p.State = state
	p.ZipCode = strings.TrimSpace(req.ZipCode)
	p.PropertyType = req.PropertyType
	p.Bedrooms = req.Bedrooms
	p.Bathrooms = req.Bathrooms
	p.SquareFeet = req.SquareFeet
	p.MonthlyRentCents = req.MonthlyRentCents
	p.SecurityDepositCents = req.SecurityDepositCents
	p.ApplicationFeeCents = req.ApplicationFeeCents
	p.AvailableFrom = req.AvailableFrom
	p.PetsAllowed = req.PetsAllowed
	p.Amenities = nonNil(req.Amenities)
	p.ImageURLs = nonNil(req.ImageURLs)

	switch {
	case req.Latitude != nil:
		p.Latitude, p.Longitude = req.Latitude, req.Longitude
	case addressChanged || p.Latitude == nil:
		p.Latitude, p.Longitude = nil, nil
		if s.geocoder != nil {
			addr := internal_utils.FormatAddress(p.Address, p.City, p.State, p.ZipCode)
			lat, lng, gErr := s.geocoder.Geocode(ctx, addr)
			if gErr != nil {
				utils.Logger.WithError(gErr).WithField("address", addr).Warn("Geocoding failed; saving without coordinates")
			} else {
				p.Latitude, p.Longitude = &lat, &lng
			}
		}
	}

	p.TimeZone = internal_utils.DefaultTimeZone
	if p.Latitude != nil {
		p.TimeZone = internal_utils.TimeZoneFor(*p.Latitude, *p.Longitude)
	}
	return nil
}

func nonNil(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func searchCacheKey(q dtos.PropertySearchQuery, page utils.Pagination) string {
	var b strings.Builder
	fmt.Fprintf(&b, "city=%s|state=%s|type=%s|min=%d|max=%d|bed=%d|bath=%g|q=%s|sort=%s",
		strings.ToLower(strings.TrimSpace(q.City)), q.State, q.PropertyType, q.MinRentCents, q.MaxRentCents,
		q.MinBedrooms, q.MinBathrooms, strings.ToLower(strings.TrimSpace(q.Query)), q.Sort)
	if q.PetsAllowed != nil {
		fmt.Fprintf(&b, "|pets=%t", *q.PetsAllowed)
	}
	if q.Lat != nil {
		fmt.Fprintf(&b, "|lat=%.4f|lng=%.4f|r=%g", *q.Lat, *q.Lng, q.RadiusMiles)
	}
	fmt.Fprintf(&b, "|page=%d|size=%d", page.Page, page.PageSize)
	return b.String()
}
