package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type MaintenanceService struct {
	cfg        *config.Config
	requests   repositories.MaintenanceRequestRepository
	leases     repositories.LeaseRepository
	properties repositories.PropertyRepository
	profiles   repositories.ProfileRepository
	triager    Triager
	notifier   *NotificationService
}

func NewMaintenanceService(
	cfg *config.Config,
	requests repositories.MaintenanceRequestRepository,
	leases repositories.LeaseRepository,
	properties repositories.PropertyRepository,
	profiles repositories.ProfileRepository,
	triager Triager,
	notifier *NotificationService,
) *MaintenanceService {
	return &MaintenanceService{
		cfg:        cfg,
		requests:   requests,
		leases:     leases,
		properties: properties,
		profiles:   profiles,
		triager:    triager,
		notifier:   notifier,
	}
}

// Create files a request against the tenant's active lease on the property.
// Category and priority the tenant left out are filled in by triage.
func (s *MaintenanceService) Create(ctx context.Context, caller *middleware.Identity, req dtos.CreateMaintenanceRequest) (*models.MaintenanceRequest, error) {
	lease, err := s.leases.FindActiveForTenantProperty(ctx, caller.UserID, req.PropertyID, time.Now())
	if err != nil {
		return nil, utils.Internal("Failed to load lease", err)
	}
	if lease == nil {
		return nil, utils.Forbidden("An active lease on this property is required")
	}

	m := &models.MaintenanceRequest{
		ID:          uuid.New(),
		PropertyID:  req.PropertyID,
		LeaseID:     lease.ID,
		TenantID:    caller.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      models.MaintenanceOpen,
		ImageURLs:   nonNil(req.ImageURLs),
	}
	if m.Category == "" || m.Priority == "" {
		s.triage(ctx, m)
	}
	if err := s.requests.Create(ctx, m); err != nil {
		return nil, utils.Internal("Failed to create maintenance request", err)
	}
	utils.Logger.WithField("request_id", m.ID).Infof("Maintenance request filed (%s/%s)", m.Category, m.Priority)

	s.notifyOwner(ctx, m, lease.OwnerID)
	return m, nil
}

func (s *MaintenanceService) List(ctx context.Context, caller *middleware.Identity, statuses []models.MaintenanceStatus, priority models.MaintenancePriority, page utils.Pagination) (utils.PageResponse[*models.MaintenanceRequest], error) {
	for _, st := range statuses {
		if !models.MaintenanceStatusMachine.Known(st) {
			return utils.PageResponse[*models.MaintenanceRequest]{}, utils.ValidationFailed("unknown status "+string(st), nil)
		}
	}
	if priority != "" && !utils.Contains(models.MaintenancePriorities, priority) {
		return utils.PageResponse[*models.MaintenanceRequest]{}, utils.ValidationFailed("unknown priority "+string(priority), nil)
	}
	f := models.MaintenanceFilters{
		Statuses: statuses,
		Priority: priority,
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	}
	id := caller.UserID
	switch caller.Role {
	case models.RoleTenant:
		f.TenantID = &id
	case models.RoleOwner:
		f.OwnerID = &id
	}
	rows, total, err := s.requests.List(ctx, f)
	if err != nil {
		return utils.PageResponse[*models.MaintenanceRequest]{}, utils.Internal("Failed to list maintenance requests", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

func (s *MaintenanceService) Get(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.MaintenanceRequest, error) {
	m, _, err := s.loadForCaller(ctx, caller, id)
	return m, err
}

// Transition moves a request along its workflow. Owner notes may be set on
// any step the owner or an admin makes.
func (s *MaintenanceService) Transition(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.TransitionRequest) (*models.MaintenanceRequest, error) {
	to := models.MaintenanceStatus(req.To)
	if !models.MaintenanceStatusMachine.Known(to) {
		return nil, utils.ValidationFailed("unknown maintenance status "+req.To, nil)
	}
	_, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	notes := utils.TrimPtr(req.Notes)

	updated, err := s.requests.Mutate(ctx, id, req.RowVersion, func(m *models.MaintenanceRequest) (*models.AuditLog, error) {
		if err := models.MaintenanceStatusMachine.Check(m.Status, to, actor); err != nil {
			return nil, err
		}
		from := m.Status
		m.Status = to
		switch to {
		case models.MaintenanceResolved:
			now := time.Now().UTC()
			m.ResolvedAt = &now
		case models.MaintenanceInProgress:
			m.ResolvedAt = nil
		}
		if notes != nil && actor != models.ActorTenant {
			m.OwnerNotes = notes
		}
		details := map[string]any{"from": from, "to": to}
		if notes != nil {
			details["notes"] = *notes
		}
		return auditEntry(caller, actor, models.AuditTransition, models.TargetMaintenance, m.ID, details), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, func(m *models.MaintenanceRequest) any { return m })
	}
	utils.Logger.WithField("request_id", id).Infof("Maintenance request moved to %s", to)

	if actor != models.ActorTenant {
		if tenant, err := s.profiles.GetByID(ctx, updated.TenantID); err == nil && tenant != nil {
			paragraphs := []string{fmt.Sprintf("Your request \"%s\" is now %s.", updated.Title, humanStatus(to))}
			if notes != nil {
				paragraphs = append(paragraphs, "Notes: "+*notes)
			}
			s.notifier.Notify(ctx, Notice{
				ToName:     tenant.FullName,
				ToEmail:    tenant.Email,
				Subject:    fmt.Sprintf(constants.EmailSubjectMaintenance, humanStatus(to), updated.Title),
				Heading:    "Maintenance update",
				Paragraphs: paragraphs,
			})
		}
	}
	return updated, nil
}

// ------------------------------------------------------------------
// internals
// ------------------------------------------------------------------

func (s *MaintenanceService) triage(ctx context.Context, m *models.MaintenanceRequest) {
	res, err := s.triager.Triage(ctx, m.Title, m.Description)
	if err != nil || res == nil {
		utils.Logger.WithError(err).Warn("Maintenance triage failed; using defaults")
		res = &TriageResult{Category: models.MaintenanceOther, Priority: models.PriorityNormal}
	}
	if m.Category == "" {
		m.Category = res.Category
	}
	if m.Priority == "" {
		m.Priority = res.Priority
	}
	if res.Summary != "" {
		m.TriageSummary = &res.Summary
	}
}

func (s *MaintenanceService) notifyOwner(ctx context.Context, m *models.MaintenanceRequest, ownerID uuid.UUID) {
	owner, err := s.profiles.GetByID(ctx, ownerID)
	if err != nil || owner == nil {
		utils.Logger.WithError(err).WithField("owner_id", ownerID).Warn("No owner profile for maintenance notice")
		return
	}
	title := "your property"
	if p, err := s.properties.GetByID(ctx, m.PropertyID); err == nil && p != nil {
		title = p.Title
	}
	s.notifier.Notify(ctx, Notice{
		ToName:  owner.FullName,
		ToEmail: owner.Email,
		Subject: fmt.Sprintf(constants.EmailSubjectMaintenance, m.Priority, m.Title),
		Heading: "New maintenance request",
		Paragraphs: []string{
			fmt.Sprintf("A tenant at %s reported: %s", title, m.Title),
			m.Description,
		},
	})
	if m.Priority == models.PriorityEmergency {
		s.notifier.SMS(ctx, owner.Phone, fmt.Sprintf("%s EMERGENCY at %s: %s", s.cfg.OrganizationName, title, m.Title))
	}
}

func (s *MaintenanceService) loadForCaller(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.MaintenanceRequest, models.Actor, error) {
	m, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, "", utils.Internal("Failed to load maintenance request", err)
	}
	if m == nil {
		return nil, "", utils.NotFound("Maintenance request not found")
	}
	if m.TenantID == caller.UserID {
		return m, models.ActorTenant, nil
	}
	if isAdmin(caller) {
		return m, models.ActorAdmin, nil
	}
	p, err := s.properties.GetByID(ctx, m.PropertyID)
	if err != nil {
		return nil, "", utils.Internal("Failed to load property", err)
	}
	if p != nil && p.OwnerID == caller.UserID {
		return m, models.ActorOwner, nil
	}
	return nil, "", utils.NotFound("Maintenance request not found")
}
