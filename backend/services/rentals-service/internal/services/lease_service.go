package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
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

const leaseBodyTemplate = `RESIDENTIAL LEASE AGREEMENT

This lease is made between {{.OwnerName}} ("Landlord") and {{.TenantName}} ("Tenant")
through {{.Organization}}.

PREMISES
{{.Address}}

TERM
The lease begins on {{.Start}} and ends on {{.End}} ({{.TermMonths}} month(s)).

RENT
Tenant agrees to pay {{.Rent}} per month, due on day {{.DueDay}} of each month.
When the due date falls on a weekend or US federal holiday, rent is due the next business day.

SECURITY DEPOSIT
Tenant has paid a security deposit of {{.Deposit}}.

OCCUPANTS AND PETS
Occupants: {{.Occupants}}. Pets: {{if .HasPets}}yes{{if .PetDetails}} ({{.PetDetails}}){{end}}{{else}}none{{end}}.

SIGNATURES
Both parties sign electronically. Each signature binds to this exact text.
`

var leaseBody = template.Must(template.New("lease").Parse(leaseBodyTemplate))

type leaseTerms struct {
	Organization string
	OwnerName    string
	TenantName   string
	Address      string
	Start        string
	End          string
	TermMonths   int
	Rent         string
	Deposit      string
	DueDay       int
	Occupants    int
	HasPets      bool
	PetDetails   string
}

type LeaseService struct {
	cfg        *config.Config
	leases     repositories.LeaseRepository
	apps       repositories.ApplicationRepository
	properties repositories.PropertyRepository
	profiles   repositories.ProfileRepository
	payments   repositories.PaymentRepository
	listings   *PropertyService
	notifier   *NotificationService
}

func NewLeaseService(
	cfg *config.Config,
	leases repositories.LeaseRepository,
	apps repositories.ApplicationRepository,
	properties repositories.PropertyRepository,
	profiles repositories.ProfileRepository,
	payments repositories.PaymentRepository,
	listings *PropertyService,
	notifier *NotificationService,
) *LeaseService {
	return &LeaseService{
		cfg:        cfg,
		leases:     leases,
		apps:       apps,
		properties: properties,
		profiles:   profiles,
		payments:   payments,
		listings:   listings,
		notifier:   notifier,
	}
}

// Create drafts the lease for an approved application.
func (s *LeaseService) Create(ctx context.Context, caller *middleware.Identity, applicationID uuid.UUID, req dtos.CreateLeaseRequest) (*shared_dtos.Lease, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, utils.Internal("Failed to load application", err)
	}
	if app == nil {
		return nil, utils.NotFound("Application not found")
	}
	prop, err := s.properties.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, utils.Internal("Failed to load property", err)
	}
	if prop == nil {
		return nil, utils.NotFound("Property not found")
	}
	if !isAdmin(caller) && !(caller.Role == models.RoleOwner && prop.OwnerID == caller.UserID) {
		return nil, utils.Forbidden("Only the property owner can draft a lease")
	}
	if app.Status != models.ApplicationApproved {
		return nil, utils.Conflict("A lease can only be drafted for an approved application", nil)
	}
	start := req.StartDate.UTC().Truncate(24 * time.Hour)
	if start.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return nil, utils.ValidationFailed("start_date cannot be in the past", nil)
	}
	end := start.AddDate(0, req.TermMonths, -1)

	ownerName := s.cfg.OrganizationName
	if owner, err := s.profiles.GetByID(ctx, prop.OwnerID); err == nil && owner != nil {
		ownerName = owner.FullName
	}
	terms := leaseTerms{
		Organization: s.cfg.OrganizationName,
		OwnerName:    ownerName,
		TenantName:   app.FullName,
		Address:      internal_utils.FormatAddress(prop.Address, prop.City, prop.State, prop.ZipCode),
		Start:        start.Format("January 2, 2006"),
		End:          end.Format("January 2, 2006"),
		TermMonths:   req.TermMonths,
		Rent:         utils.FormatCents(prop.MonthlyRentCents),
		Deposit:      utils.FormatCents(prop.SecurityDepositCents),
		DueDay:       req.RentDueDay,
		Occupants:    app.Occupants,
		HasPets:      app.HasPets,
		PetDetails:   utils.Val(app.PetDetails),
	}
	var buf bytes.Buffer
	if err := leaseBody.Execute(&buf, terms); err != nil {
		return nil, utils.Internal("Failed to render lease", err)
	}

	lease := &models.Lease{
		ID:                   uuid.New(),
		ApplicationID:        app.ID,
		PropertyID:           prop.ID,
		TenantID:             app.TenantID,
		OwnerID:              prop.OwnerID,
		Status:               models.LeaseDraft,
		StartDate:            start,
		EndDate:              end,
		MonthlyRentCents:     prop.MonthlyRentCents,
		SecurityDepositCents: prop.SecurityDepositCents,
		RentDueDay:           req.RentDueDay,
		Body:                 buf.String(),
	}
	lease.ContentHash = utils.ContentHash(lease.Body)
	if err := s.leases.Create(ctx, lease); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, utils.Conflict("A lease already exists for this application", err)
		}
		return nil, utils.Internal("Failed to create lease", err)
	}
	utils.Logger.WithField("lease_id", lease.ID).Infof("Lease drafted for application %s", app.ID)

	out := s.view(lease, time.Now())
	return &out, nil
}

func (s *LeaseService) Get(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*shared_dtos.Lease, error) {
	lease, _, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	out := s.view(lease, time.Now())
	return &out, nil
}

func (s *LeaseService) List(ctx context.Context, caller *middleware.Identity, page utils.Pagination) (utils.PageResponse[shared_dtos.Lease], error) {
	rows, total, err := s.leases.ListForUser(ctx, caller.UserID, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[shared_dtos.Lease]{}, utils.Internal("Failed to list leases", err)
	}
	now := time.Now()
	items := make([]shared_dtos.Lease, 0, len(rows))
	for _, l := range rows {
		items = append(items, s.view(l, now))
	}
	return utils.NewPageResponse(items, total, page), nil
}

// Send hands a draft to the tenant for signature.
func (s *LeaseService) Send(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.RowVersionRequest) (*shared_dtos.Lease, error) {
	_, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.leases.Mutate(ctx, id, req.RowVersion, func(l *models.Lease) (*models.AuditLog, error) {
		return leaseTransition(l, models.LeaseSent, actor, caller, nil)
	})
	if err != nil {
		return nil, mutationError(err, updated, s.viewAny)
	}

	title := s.propertyTitle(ctx, updated.PropertyID)
	s.notifyParty(ctx, updated.TenantID, Notice{
		Subject:    fmt.Sprintf(constants.EmailSubjectLeaseReady, title),
		Heading:    "Your lease is ready",
		Paragraphs: []string{fmt.Sprintf("The lease for %s is ready for your signature.", title)},
		LinkURL:    s.leaseURL(updated.ID),
		LinkText:   "Review and sign",
	})
	out := s.view(updated, time.Now())
	return &out, nil
}

// Sign records the caller's signature. The tenant signs first, then the
// owner. contentHash must match the stored body.
func (s *LeaseService) Sign(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.SignLeaseRequest, clientIP string) (*shared_dtos.Lease, error) {
	_, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	to := models.LeaseFullySigned
	if actor == models.ActorTenant {
		to = models.LeaseTenantSigned
	}
	name := strings.TrimSpace(req.SignatureName)

	updated, err := s.leases.Mutate(ctx, id, req.RowVersion, func(l *models.Lease) (*models.AuditLog, error) {
		if err := models.LeaseStatusMachine.Check(l.Status, to, actor); err != nil {
			return nil, err
		}
		if !utils.HashMatches(l.ContentHash, req.ContentHash) {
			return nil, utils.Conflict("The lease text has changed, reload it before signing", nil)
		}
		now := time.Now().UTC()
		ip := clientIP
		if actor == models.ActorTenant {
			l.TenantSignature, l.TenantSignedAt, l.TenantSignedIP = &name, &now, &ip
		} else {
			l.OwnerSignature, l.OwnerSignedAt, l.OwnerSignedIP = &name, &now, &ip
		}
		from := l.Status
		l.Status = to
		return auditEntry(caller, actor, models.AuditSign, models.TargetLease, l.ID, map[string]any{
			"from":         from,
			"to":           to,
			"content_hash": l.ContentHash,
			"ip":           ip,
		}), nil
	})
	if err != nil {
		return nil, mutationError(err, updated, s.viewAny)
	}
	utils.Logger.WithField("lease_id", id).Infof("Lease signed by %s", actor)

	if updated.Status == models.LeaseFullySigned {
		s.onFullySigned(ctx, updated)
	}
	out := s.view(updated, time.Now())
	return &out, nil
}

func (s *LeaseService) Void(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.VoidLeaseRequest) (*shared_dtos.Lease, error) {
	_, actor, err := s.loadForCaller(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, utils.ValidationFailed("reason is required", nil)
	}
	updated, err := s.leases.Mutate(ctx, id, req.RowVersion, func(l *models.Lease) (*models.AuditLog, error) {
		audit, err := leaseTransition(l, models.LeaseVoid, actor, caller, &reason)
		if err == nil {
			l.VoidReason = &reason
		}
		return audit, err
	})
	if err != nil {
		return nil, mutationError(err, updated, s.viewAny)
	}
	out := s.view(updated, time.Now())
	return &out, nil
}

// SendReminders emails rent reminders and lease expiry notices for the day
// containing now.
func (s *LeaseService) SendReminders(ctx context.Context, now time.Time) (rent int, expiring int, err error) {
	active, err := s.leases.ListActive(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	today := now.UTC().Truncate(24 * time.Hour)
	for _, l := range active {
		title := s.propertyTitle(ctx, l.PropertyID)

		if due, nominal, ok := internal_utils.NextRentDue(today, l.StartDate, l.EndDate, l.RentDueDay); ok && daysBetween(today, due) == constants.RentReminderDaysBefore {
			period := internal_utils.RentPeriod(nominal)
			paid, err := s.payments.FindForLeasePeriod(ctx, l.ID, period)
			if err != nil {
				utils.Logger.WithError(err).WithField("lease_id", l.ID).Warn("Failed to check rent payment")
			} else if paid == nil || paid.Status != models.PaymentSucceeded {
				s.notifyParty(ctx, l.TenantID, Notice{
					Subject: fmt.Sprintf(constants.EmailSubjectRentReminder, utils.FormatCents(l.MonthlyRentCents), due.Format("Jan 2")),
					Heading: "Rent reminder",
					Paragraphs: []string{
						fmt.Sprintf("Rent of %s for %s is due on %s.", utils.FormatCents(l.MonthlyRentCents), title, due.Format("Monday, January 2")),
					},
					LinkURL:  s.leaseURL(l.ID),
					LinkText: "Pay rent",
				})
				rent++
			}
		}

		if daysBetween(today, l.EndDate) == constants.LeaseExpiryNoticeDays {
			n := Notice{
				Subject:    fmt.Sprintf(constants.EmailSubjectLeaseExpiring, title, l.EndDate.Format("Jan 2, 2006")),
				Heading:    "Lease ending soon",
				Paragraphs: []string{fmt.Sprintf("The lease for %s ends on %s.", title, l.EndDate.Format("January 2, 2006"))},
				LinkURL:    s.leaseURL(l.ID),
				LinkText:   "View lease",
			}
			s.notifyParty(ctx, l.TenantID, n)
			s.notifyParty(ctx, l.OwnerID, n)
			expiring++
		}
	}
	if rent+expiring > 0 {
		utils.Logger.Infof("Sent %d rent reminder(s) and %d lease expiry notice(s)", rent, expiring)
	}
	return rent, expiring, nil
}

// ------------------------------------------------------------------
// internals
// ------------------------------------------------------------------

func leaseTransition(l *models.Lease, to models.LeaseStatus, actor models.Actor, caller *middleware.Identity, reason *string) (*models.AuditLog, error) {
	if err := models.LeaseStatusMachine.Check(l.Status, to, actor); err != nil {
		return nil, err
	}
	from := l.Status
	l.Status = to
	details := map[string]any{"from": from, "to": to}
	if reason != nil {
		details["reason"] = *reason
	}
	return auditEntry(caller, actor, models.AuditTransition, models.TargetLease, l.ID, details), nil
}

func (s *LeaseService) onFullySigned(ctx context.Context, l *models.Lease) {
	prop, err := s.properties.GetByID(ctx, l.PropertyID)
	if err != nil || prop == nil {
		utils.Logger.WithError(err).WithField("property_id", l.PropertyID).Error("Failed to load property for signed lease")
		return
	}
	if prop.Status == models.PropertyStatusAvailable {
		if err := s.listings.SystemTransition(ctx, prop.ID, models.PropertyStatusPending, "lease signed"); err != nil {
			utils.Logger.WithError(err).Warn("Failed to mark property pending")
		}
	}
	if err := s.listings.SystemTransition(ctx, prop.ID, models.PropertyStatusRented, "lease fully signed"); err != nil {
		utils.Logger.WithError(err).WithField("property_id", prop.ID).Error("Failed to mark property rented")
	}

	n := Notice{
		Subject:    fmt.Sprintf(constants.EmailSubjectLeaseSigned, prop.Title),
		Heading:    "Lease fully signed",
		Paragraphs: []string{fmt.Sprintf("Both parties have signed the lease for %s. It starts on %s.", prop.Title, l.StartDate.Format("January 2, 2006"))},
		LinkURL:    s.leaseURL(l.ID),
		LinkText:   "View lease",
	}
	s.notifyParty(ctx, l.TenantID, n)
	s.notifyParty(ctx, l.OwnerID, n)
}

func (s *LeaseService) loadForCaller(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Lease, models.Actor, error) {
	l, err := s.leases.GetByID(ctx, id)
	if err != nil {
		return nil, "", utils.Internal("Failed to load lease", err)
	}
	if l == nil {
		return nil, "", utils.NotFound("Lease not found")
	}
	switch {
	case l.TenantID == caller.UserID:
		return l, models.ActorTenant, nil
	case isAdmin(caller):
		return l, models.ActorAdmin, nil
	case l.OwnerID == caller.UserID:
		return l, models.ActorOwner, nil
	default:
		return nil, "", utils.NotFound("Lease not found")
	}
}

func (s *LeaseService) view(l *models.Lease, now time.Time) shared_dtos.Lease {
	out := shared_dtos.Lease{Lease: *l}
	if l.Status == models.LeaseFullySigned {
		if due, _, ok := internal_utils.NextRentDue(now, l.StartDate, l.EndDate, l.RentDueDay); ok {
			out.NextRentDue = &due
		}
	}
	return out
}

func (s *LeaseService) viewAny(l *models.Lease) any {
	return s.view(l, time.Now())
}

func (s *LeaseService) notifyParty(ctx context.Context, userID uuid.UUID, n Notice) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil || p == nil {
		utils.Logger.WithError(err).WithField("user_id", userID).Warn("No profile to notify")
		return
	}
	n.ToName, n.ToEmail = p.FullName, p.Email
	s.notifier.Notify(ctx, n)
}

func (s *LeaseService) propertyTitle(ctx context.Context, id uuid.UUID) string {
	if p, err := s.properties.GetByID(ctx, id); err == nil && p != nil {
		return p.Title
	}
	return "your rental"
}

func (s *LeaseService) leaseURL(id uuid.UUID) string {
	return s.cfg.AppUrl + "/leases/" + id.String()
}

func daysBetween(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}
