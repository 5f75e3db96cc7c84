package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type ApplicationService struct {
	cfg        *config.Config
	apps       repositories.ApplicationRepository
	properties repositories.PropertyRepository
	profiles   repositories.ProfileRepository
	audit      repositories.AuditLogRepository
	listings   *PropertyService
	notifier   *NotificationService
	metrics    *internal_utils.Metrics
	payments   PaymentCanceler
}

// PaymentCanceler closes the payment still open for an application.
type PaymentCanceler interface {
	CancelOpenForApplication(ctx context.Context, applicationID uuid.UUID) error
}

func NewApplicationService(
	cfg *config.Config,
	apps repositories.ApplicationRepository,
	properties repositories.PropertyRepository,
	profiles repositories.ProfileRepository,
	audit repositories.AuditLogRepository,
	listings *PropertyService,
	notifier *NotificationService,
	metrics *internal_utils.Metrics,
) *ApplicationService {
	return &ApplicationService{
		cfg:        cfg,
		apps:       apps,
		properties: properties,
		profiles:   profiles,
		audit:      audit,
		listings:   listings,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// SetPaymentCanceler is called once the payment service exists, since that
// service depends on this one.
func (s *ApplicationService) SetPaymentCanceler(c PaymentCanceler) {
	s.payments = c
}

// ------------------------------------------------------------------
// Tenant operations
// ------------------------------------------------------------------

func (s *ApplicationService) Submit(ctx context.Context, caller *middleware.Identity, req dtos.SubmitApplicationRequest) (*shared_dtos.Application, error) {
	if caller.Role != models.RoleTenant {
		return nil, utils.Forbidden("Only tenants can apply for a property")
	}
	prop, err := s.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, utils.Internal("Failed to load property", err)
	}
	if prop == nil || prop.DeletedAt != nil {
		return nil, utils.NotFound("Property not found")
	}
	if prop.Status != models.PropertyStatusAvailable {
		return nil, utils.Conflict("Property is not accepting applications", nil)
	}

	phone := utils.NormalizePhone(req.Phone)
	if !utils.IsE164(phone) {
		return nil, utils.ValidationFailed("phone must be a valid phone number", utils.ErrInvalidPhone)
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if req.MoveInDate.UTC().Before(today) {
		return nil, utils.ValidationFailed("move_in_date cannot be in the past", nil)
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:                 uuid.New(),
		PropertyID:         prop.ID,
		TenantID:           caller.UserID,
		Status:             models.ApplicationSubmitted,
		FullName:           strings.TrimSpace(req.FullName),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:              phone,
		Employer:           utils.TrimPtr(req.Employer),
		JobTitle:           utils.TrimPtr(req.JobTitle),
		MonthlyIncomeCents: req.MonthlyIncomeCents,
		MoveInDate:         req.MoveInDate.UTC(),
		Occupants:          req.Occupants,
		HasPets:            req.HasPets,
		PetDetails:         utils.TrimPtr(req.PetDetails),
		Notes:              utils.TrimPtr(req.Notes),
		SSNLast4:           req.SSNLast4,
		SubmittedAt:        now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, utils.Conflict("You already have an active application for this property", err)
		}
		return nil, utils.Internal("Failed to submit application", err)
	}
	s.writeAudit(ctx, auditEntry(caller, models.ActorTenant, models.AuditCreate, models.TargetApplication, app.ID, map[string]any{
		"property_id": prop.ID,
	}))
	s.countTransition(app.Status)

	utils.Logger.WithField("application_id", app.ID).Infof("Application submitted for property %s", prop.ID)

	s.notifier.Notify(ctx, Notice{
		ToName:  app.FullName,
		ToEmail: app.Email,
		Subject: fmt.Sprintf(constants.EmailSubjectApplicationReceived, prop.Title),
		Heading: "Application received",
		Paragraphs: []string{
			fmt.Sprintf("Thanks for applying to %s. The owner will review your application shortly.", prop.Title),
		},
		LinkURL:  s.applicationURL(app.ID),
		LinkText: "View application",
	})
	if owner, err := s.profiles.GetByID(ctx, prop.OwnerID); err == nil && owner != nil {
		s.notifier.Notify(ctx, Notice{
			ToName:  owner.FullName,
			ToEmail: owner.Email,
			Subject: fmt.Sprintf(constants.EmailSubjectNewApplication, prop.Title),
			Heading: "New application",
			Paragraphs: []string{
				fmt.Sprintf("%s applied for %s with a requested move-in date of %s.",
					app.FullName, prop.Title, app.MoveInDate.Format("Jan 2, 2006")),
			},
			LinkURL:  s.applicationURL(app.ID),
			LinkText: "Review application",
		})
	}

	out := s.view(app, models.ActorTenant, prop)
	return &out, nil
}

// ------------------------------------------------------------------
// Reads
// ------------------------------------------------------------------

// List scopes by role: tenants see their own, owners see applications on
// their listings, admins see everything.
func (s *ApplicationService) List(
	ctx context.Context,
	caller *middleware.Identity,
	propertyID *uuid.UUID,
	statuses []models.ApplicationStatus,
	page utils.Pagination,
) (utils.PageResponse[shared_dtos.Application], error) {
	f := models.ApplicationFilters{
		PropertyID: propertyID,
		Statuses:   statuses,
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	}
	actor := caller.Role.Actor()
	switch caller.Role {
	case models.RoleTenant:
		id := caller.UserID
		f.TenantID = &id
	case models.RoleOwner:
		id := caller.UserID
		f.OwnerID = &id
	}
	for _, st := range statuses {
		if !models.ApplicationStatusMachine.Known(st) {
			return utils.PageResponse[shared_dtos.Application]{}, utils.ValidationFailed("unknown status "+string(st), nil)
		}
	}

	rows, total, err := s.apps.List(ctx, f)
	if err != nil {
		return utils.PageResponse[shared_dtos.Application]{}, utils.Internal("Failed to list applications", err)
	}
	props := s.propertyIndex(ctx, rows)
	items := make([]shared_dtos.Application, 0, len(rows))
	for _, a := range rows {
		items = append(items, s.view(a, actor, props[a.PropertyID]))
	}
	return utils.NewPageResponse(items, total, page), nil
}

func (s *ApplicationService) Get(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*shared_dtos.Application, error) {
	app, prop, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	out := s.view(app, actor, prop)
	return &out, nil
}

// History is the audit trail of one application, oldest first.
func (s *ApplicationService) History(ctx context.Context, caller *middleware.Identity, id uuid.UUID) ([]*models.AuditLog, error) {
	if _, _, _, err := s.loadForCaller(ctx, caller, id); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByTarget(ctx, models.TargetApplication, id)
	if err != nil {
		return nil, utils.Internal("Failed to load application history", err)
	}
	if entries == nil {
		entries = []*models.AuditLog{}
	}
	return entries, nil
}

// ------------------------------------------------------------------
// Transitions
// ------------------------------------------------------------------

// Transition applies one state machine step on behalf of the caller. The
// caller's relationship to the application decides which actor it acts as.
func (s *ApplicationService) Transition(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.TransitionRequest) (*shared_dtos.Application, error) {
	to := models.ApplicationStatus(req.To)
	if !models.ApplicationStatusMachine.Known(to) {
		return nil, utils.ValidationFailed("unknown application status "+req.To, nil)
	}
	reason := utils.TrimPtr(req.Reason)
	if to == models.ApplicationRejected && reason == nil {
		return nil, utils.ValidationFailed("reason is required when rejecting an application", nil)
	}

	_, prop, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if to == models.ApplicationApproved && prop.Status != models.PropertyStatusAvailable {
		return nil, utils.Conflict("Property is no longer available", nil)
	}

	var from models.ApplicationStatus
	apply := func(a *models.Application) (*models.AuditLog, error) {
		from = a.Status
		return s.applyTransition(a, to, actor, caller, reason, req.Notes)
	}
	var updated *models.Application
	if to == models.ApplicationApproved {
		var locked *models.Property
		updated, locked, err = s.approve(ctx, id, req.RowVersion, apply)
		if locked != nil {
			prop = locked
		}
	} else {
		updated, err = s.apps.Mutate(ctx, id, req.RowVersion, apply)
	}
	if err != nil {
		return nil, mutationError(err, updated, func(a *models.Application) any {
			return s.view(a, actor, prop)
		})
	}
	s.afterTransition(ctx, updated, from, prop)

	out := s.view(updated, actor, prop)
	return &out, nil
}

// SystemTransition is used by the payment webhook and cron jobs. Errors are
// returned unmapped so callers can tell ErrAlreadyInState apart.
func (s *ApplicationService) SystemTransition(ctx context.Context, id uuid.UUID, to models.ApplicationStatus, reason string) (*models.Application, error) {
	var r *string
	if reason != "" {
		r = &reason
	}
	var from models.ApplicationStatus
	updated, err := s.apps.Mutate(ctx, id, nil, func(a *models.Application) (*models.AuditLog, error) {
		from = a.Status
		return s.applyTransition(a, to, models.ActorSystem, systemIdentity, r, nil)
	})
	if err != nil {
		return nil, err
	}
	prop, err := s.properties.GetByID(ctx, updated.PropertyID)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to load property after system transition")
	}
	s.afterTransition(ctx, updated, from, prop)
	return updated, nil
}

// ExpireOverduePayments rejects payment_pending applications whose payment
// window has passed.
func (s *ApplicationService) ExpireOverduePayments(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.apps.ListPaymentExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, a := range overdue {
		_, err := s.SystemTransition(ctx, a.ID, models.ApplicationRejected, constants.RejectReasonPaymentExpired)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, models.ErrAlreadyInState), errors.Is(err, models.ErrTransitionNotDefined):
			// paid or withdrawn since the scan
		default:
			utils.Logger.WithError(err).WithField("application_id", a.ID).Error("Failed to expire application")
		}
	}
	if expired > 0 {
		utils.Logger.Infof("Expired %d overdue application payment(s)", expired)
	}
	return expired, nil
}

// applyTransition runs under the row lock.
func (s *ApplicationService) applyTransition(
	a *models.Application,
	to models.ApplicationStatus,
	actor models.Actor,
	caller *middleware.Identity,
	reason *string,
	notes *string,
) (*models.AuditLog, error) {
	if err := models.ApplicationStatusMachine.Check(a.Status, to, actor); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	from := a.Status
	a.Status = to

	switch to {
	case models.ApplicationPaymentPending:
		due := now.Add(s.cfg.PaymentPendingTTL())
		a.PaymentDueAt = &due
	case models.ApplicationPaidUnderReview:
		a.PaymentDueAt = nil
	}
	if models.ApplicationStatusMachine.IsTerminal(to) {
		a.DecidedAt = &now
	}
	if reason != nil {
		a.DecisionReason = reason
	}
	if caller != nil && (actor == models.ActorOwner || actor == models.ActorAdmin) {
		rid := caller.UserID
		a.ReviewerID = &rid
	}

	details := map[string]any{"from": from, "to": to}
	if reason != nil {
		details["reason"] = *reason
	}
	if notes != nil {
		details["notes"] = *notes
	}
	return auditEntry(caller, actor, models.AuditTransition, models.TargetApplication, a.ID, details), nil
}

// approve locks the property before the application, so two approvals on
// the same listing serialize and only the first finds it available. The
// listing moves to pending in the same transaction.
func (s *ApplicationService) approve(
	ctx context.Context,
	id uuid.UUID,
	expected *int64,
	apply repositories.MutateFunc[*models.Application],
) (*models.Application, *models.Property, error) {
	return s.apps.MutateWithProperty(ctx, id, expected, func(a *models.Application, p *models.Property) ([]*models.AuditLog, error) {
		entry, err := apply(a)
		if err != nil {
			return nil, err
		}
		if p.Status != models.PropertyStatusAvailable {
			return nil, utils.Conflict("Property is no longer available", nil)
		}
		if err := models.PropertyStatusMachine.Check(p.Status, models.PropertyStatusPending, models.ActorSystem); err != nil {
			return nil, err
		}
		p.Status = models.PropertyStatusPending
		return []*models.AuditLog{
			entry,
			auditEntry(systemIdentity, models.ActorSystem, models.AuditTransition, models.TargetProperty, p.ID, map[string]any{
				"from":           models.PropertyStatusAvailable,
				"to":             models.PropertyStatusPending,
				"reason":         "application approved",
				"application_id": a.ID,
			}),
		}, nil
	})
}

// afterTransition runs once the new status is committed. Nothing here can
// undo the transition.
func (s *ApplicationService) afterTransition(ctx context.Context, a *models.Application, from models.ApplicationStatus, prop *models.Property) {
	s.countTransition(a.Status)
	utils.Logger.WithField("application_id", a.ID).Infof("Application moved to %s", a.Status)

	if from == models.ApplicationPaymentPending && a.Status != models.ApplicationPaidUnderReview && s.payments != nil {
		if err := s.payments.CancelOpenForApplication(ctx, a.ID); err != nil {
			// the webhook refunds anything Stripe still collects
			utils.Logger.WithError(err).WithField("application_id", a.ID).Warn("Failed to cancel open payment")
		}
	}

	title := "your rental"
	if prop != nil {
		title = prop.Title
	}
	paragraphs := []string{fmt.Sprintf("Your application for %s is now %s.", title, humanStatus(a.Status))}
	switch a.Status {
	case models.ApplicationPaymentPending:
		if a.PaymentDueAt != nil {
			paragraphs = append(paragraphs, fmt.Sprintf("Please complete your payment by %s.", a.PaymentDueAt.Format("Jan 2, 2006 3:04 PM MST")))
		}
	case models.ApplicationRejected:
		if a.DecisionReason != nil {
			paragraphs = append(paragraphs, "Reason: "+*a.DecisionReason)
		}
	}
	s.notifier.Notify(ctx, Notice{
		ToName:     a.FullName,
		ToEmail:    a.Email,
		Subject:    fmt.Sprintf(constants.EmailSubjectApplicationUpdate, title, humanStatus(a.Status)),
		Heading:    "Application update",
		Paragraphs: paragraphs,
		LinkURL:    s.applicationURL(a.ID),
		LinkText:   "View application",
	})

	if a.Status == models.ApplicationApproved && prop != nil {
		s.settleProperty(ctx, a, prop)
	}
}

// settleProperty turns away the other applicants once approval has taken
// the listing.
func (s *ApplicationService) settleProperty(ctx context.Context, approved *models.Application, prop *models.Property) {
	s.listings.ListingChanged(ctx)
	others, err := s.apps.ListActiveByProperty(ctx, prop.ID)
	if err != nil {
		utils.Logger.WithError(err).WithField("property_id", prop.ID).Error("Failed to list competing applications")
		return
	}
	for _, other := range others {
		if other.ID == approved.ID {
			continue
		}
		if _, err := s.SystemTransition(ctx, other.ID, models.ApplicationRejected, constants.RejectReasonPropertyLeased); err != nil &&
			!errors.Is(err, models.ErrAlreadyInState) {
			utils.Logger.WithError(err).WithField("application_id", other.ID).Error("Failed to reject competing application")
		}
	}
}

// ------------------------------------------------------------------
// internals
// ------------------------------------------------------------------

// loadForCaller fetches the application and its property and resolves the
// actor the caller acts as. Strangers get 404 rather than 403.
func (s *ApplicationService) loadForCaller(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Application, *models.Property, models.Actor, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, nil, "", utils.Internal("Failed to load application", err)
	}
	if app == nil {
		return nil, nil, "", utils.NotFound("Application not found")
	}
	prop, err := s.properties.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, nil, "", utils.Internal("Failed to load property", err)
	}
	if prop == nil {
		return nil, nil, "", utils.NotFound("Property not found")
	}

	switch {
	case app.TenantID == caller.UserID:
		return app, prop, models.ActorTenant, nil
	case isAdmin(caller):
		return app, prop, models.ActorAdmin, nil
	case caller.Role == models.RoleOwner && prop.OwnerID == caller.UserID:
		return app, prop, models.ActorOwner, nil
	default:
		return nil, nil, "", utils.NotFound("Application not found")
	}
}

func (s *ApplicationService) propertyIndex(ctx context.Context, apps []*models.Application) map[uuid.UUID]*models.Property {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, a := range apps {
		if !seen[a.PropertyID] {
			seen[a.PropertyID] = true
			ids = append(ids, a.PropertyID)
		}
	}
	out := make(map[uuid.UUID]*models.Property, len(ids))
	if len(ids) == 0 {
		return out
	}
	props, err := s.properties.ListByIDs(ctx, ids)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to load properties for application list")
		return out
	}
	for _, p := range props {
		out[p.ID] = p
	}
	return out
}

func (s *ApplicationService) view(a *models.Application, actor models.Actor, prop *models.Property) shared_dtos.Application {
	out := shared_dtos.NewApplicationFromModel(*a, actor)
	if prop != nil {
		summary := shared_dtos.NewPropertySummary(*prop)
		out.Property = &summary
	}
	return out
}

func (s *ApplicationService) writeAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.audit.Create(ctx, entry); err != nil {
		utils.Logger.WithError(err).WithField("target_id", entry.TargetID).Error("Failed to write audit entry")
	}
}

func (s *ApplicationService) countTransition(to models.ApplicationStatus) {
	if s.metrics != nil {
		s.metrics.ApplicationTransitions.WithLabelValues(string(to)).Inc()
	}
}

func (s *ApplicationService) applicationURL(id uuid.UUID) string {
	return s.cfg.AppUrl + "/applications/" + id.String()
}

func humanStatus[S ~string](st S) string {
	return strings.ReplaceAll(string(st), "_", " ")
}
