package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// ErrWebhookSignature is returned for deliveries that fail verification.
var ErrWebhookSignature = errors.New("stripe webhook signature verification failed")

type PaymentService struct {
	cfg          *config.Config
	payments     repositories.PaymentRepository
	apps         repositories.ApplicationRepository
	leases       repositories.LeaseRepository
	properties   repositories.PropertyRepository
	events       repositories.StripeEventRepository
	applications *ApplicationService
	gateway      PaymentGateway
	notifier     *NotificationService
	metrics      *internal_utils.Metrics
}

func NewPaymentService(
	cfg *config.Config,
	payments repositories.PaymentRepository,
	apps repositories.ApplicationRepository,
	leases repositories.LeaseRepository,
	properties repositories.PropertyRepository,
	events repositories.StripeEventRepository,
	applications *ApplicationService,
	gateway PaymentGateway,
	notifier *NotificationService,
	metrics *internal_utils.Metrics,
) *PaymentService {
	return &PaymentService{
		cfg:          cfg,
		payments:     payments,
		apps:         apps,
		leases:       leases,
		properties:   properties,
		events:       events,
		applications: applications,
		gateway:      gateway,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// ------------------------------------------------------------------
// create-payment-intent
// ------------------------------------------------------------------

// CreateApplicationIntent charges the application fee plus the security
// deposit. Calling it again while a payment is open hands back the same
// PaymentIntent.
func (s *PaymentService) CreateApplicationIntent(ctx context.Context, caller *middleware.Identity, applicationID uuid.UUID) (*dtos.PaymentIntentResponse, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, utils.Internal("Failed to load application", err)
	}
	if app == nil || app.TenantID != caller.UserID {
		return nil, utils.NotFound("Application not found")
	}
	if app.Status != models.ApplicationPaymentPending {
		return nil, utils.Conflict("Application is not awaiting payment", nil)
	}
	if app.PaymentDueAt != nil && time.Now().After(*app.PaymentDueAt) {
		return nil, utils.Conflict("The payment window for this application has closed", nil)
	}
	prop, err := s.properties.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, utils.Internal("Failed to load property", err)
	}
	if prop == nil {
		return nil, utils.NotFound("Property not found")
	}
	amount := prop.ApplicationFeeCents + prop.SecurityDepositCents
	if amount <= 0 {
		return nil, utils.Conflict("Nothing is due for this application", nil)
	}

	appID := app.ID
	return s.openIntent(ctx, intentPlan{
		find: func(ctx context.Context) (*models.Payment, error) {
			return s.payments.FindOpenForApplication(ctx, appID)
		},
		draft: func() *models.Payment {
			return &models.Payment{
				ApplicationID: &appID,
				TenantID:      app.TenantID,
				Kind:          models.PaymentKindApplication,
				AmountCents:   amount,
			}
		},
		description:  fmt.Sprintf("Application fee and deposit for %s", prop.Title),
		receiptEmail: app.Email,
		metadata: map[string]string{
			constants.StripeMetadataApplicationIDKey: appID.String(),
		},
	})
}

// CreateRentIntent charges the next rent period of a fully signed lease.
func (s *PaymentService) CreateRentIntent(ctx context.Context, caller *middleware.Identity, leaseID uuid.UUID) (*dtos.PaymentIntentResponse, error) {
	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, utils.Internal("Failed to load lease", err)
	}
	if lease == nil || lease.TenantID != caller.UserID {
		return nil, utils.NotFound("Lease not found")
	}
	if lease.Status != models.LeaseFullySigned {
		return nil, utils.Conflict("Rent can only be paid on a fully signed lease", nil)
	}
	_, nominal, ok := internal_utils.NextRentDue(time.Now(), lease.StartDate, lease.EndDate, lease.RentDueDay)
	if !ok {
		return nil, utils.Conflict("This lease has no remaining rent due", nil)
	}
	period := internal_utils.RentPeriod(nominal)

	existing, err := s.payments.FindForLeasePeriod(ctx, lease.ID, period)
	if err != nil {
		return nil, utils.Internal("Failed to load rent payment", err)
	}
	if existing != nil && existing.Status == models.PaymentSucceeded {
		return nil, utils.Conflict("Rent for "+period+" is already paid", nil)
	}

	lid, appID := lease.ID, lease.ApplicationID
	return s.openIntent(ctx, intentPlan{
		find: func(ctx context.Context) (*models.Payment, error) {
			p, err := s.payments.FindForLeasePeriod(ctx, lid, period)
			if err != nil || p == nil || !p.Status.Open() {
				return nil, err
			}
			return p, nil
		},
		draft: func() *models.Payment {
			return &models.Payment{
				ApplicationID: &appID,
				LeaseID:       &lid,
				TenantID:      lease.TenantID,
				Kind:          models.PaymentKindRent,
				Period:        &period,
				AmountCents:   lease.MonthlyRentCents,
			}
		},
		description: "Rent for " + period,
		metadata: map[string]string{
			constants.StripeMetadataLeaseIDKey: lid.String(),
		},
	})
}

type intentPlan struct {
	find         func(ctx context.Context) (*models.Payment, error)
	draft        func() *models.Payment
	description  string
	receiptEmail string
	metadata     map[string]string
}

func (s *PaymentService) openIntent(ctx context.Context, plan intentPlan) (*dtos.PaymentIntentResponse, error) {
	// a canceled intent can be replaced once per call
	for attempt := 0; attempt < 2; attempt++ {
		p, err := plan.find(ctx)
		if err != nil {
			return nil, utils.Internal("Failed to load payment", err)
		}
		if p == nil {
			p = plan.draft()
			p.ID = uuid.New()
			p.Currency = utils.DefaultCurrency
			p.Status = models.PaymentRequiresPayment
			p.IdempotencyKey = constants.StripeIdempotencyKeyPrefix + p.ID.String()
			if err := s.payments.Create(ctx, p); err != nil {
				if !errors.Is(err, repositories.ErrDuplicate) {
					return nil, utils.Internal("Failed to create payment", err)
				}
				// lost the race to a concurrent request; use its row
				if p, err = plan.find(ctx); err != nil || p == nil {
					return nil, utils.Conflict("A payment for this item is already being created", err)
				}
			} else {
				s.countPayment(p.Status)
			}
		}

		resp, retry, err := s.intentFor(ctx, p, plan)
		if err != nil {
			return nil, err
		}
		if !retry {
			return resp, nil
		}
	}
	return nil, utils.Conflict("The payment could not be prepared, please retry", nil)
}

// intentFor returns the client secret of p's PaymentIntent, creating the
// intent when p has none yet. retry is true when the intent was canceled at
// Stripe and p has been closed.
func (s *PaymentService) intentFor(ctx context.Context, p *models.Payment, plan intentPlan) (*dtos.PaymentIntentResponse, bool, error) {
	if p.StripePaymentIntentID != nil {
		pi, err := s.gateway.GetIntent(ctx, *p.StripePaymentIntentID)
		if err != nil {
			return nil, false, utils.ExternalFailure("Failed to load payment from Stripe", err)
		}
		if pi.Status == stripe.PaymentIntentStatusCanceled {
			if err := s.applyIntentStatus(ctx, p.ID, models.PaymentCanceled, nil); err != nil {
				return nil, false, utils.Internal("Failed to close canceled payment", err)
			}
			return nil, true, nil
		}
		return intentResponse(p, pi.ClientSecret), false, nil
	}

	metadata := map[string]string{
		constants.StripeMetadataPaymentIDKey: p.ID.String(),
		constants.StripeMetadataKindKey:      string(p.Kind),
	}
	for k, v := range plan.metadata {
		metadata[k] = v
	}
	pi, err := s.gateway.CreateIntent(ctx, IntentRequest{
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Description:    plan.description,
		ReceiptEmail:   plan.receiptEmail,
		Metadata:       metadata,
		IdempotencyKey: p.IdempotencyKey,
	})
	if err != nil {
		return nil, false, utils.ExternalFailure("Failed to create payment with Stripe", err)
	}

	updated, err := s.payments.Mutate(ctx, p.ID, nil, func(row *models.Payment) (*models.AuditLog, error) {
		row.StripePaymentIntentID = &pi.ID
		return nil, nil
	})
	if err != nil {
		return nil, false, utils.Internal("Failed to record payment intent", err)
	}
	utils.Logger.WithField("payment_id", p.ID).Infof("Created PaymentIntent %s", pi.ID)
	return intentResponse(updated, pi.ClientSecret), false, nil
}

func intentResponse(p *models.Payment, clientSecret string) *dtos.PaymentIntentResponse {
	return &dtos.PaymentIntentResponse{
		PaymentID:    p.ID.String(),
		ClientSecret: clientSecret,
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		Status:       p.Status,
		Period:       p.Period,
	}
}

// ------------------------------------------------------------------
// Listing
// ------------------------------------------------------------------

func (s *PaymentService) ListForTenant(ctx context.Context, caller *middleware.Identity, page utils.Pagination) (utils.PageResponse[*models.Payment], error) {
	rows, total, err := s.payments.ListByTenant(ctx, caller.UserID, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.Payment]{}, utils.Internal("Failed to list payments", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

func (s *PaymentService) ListAll(ctx context.Context, status models.PaymentStatus, page utils.Pagination) (utils.PageResponse[*models.Payment], error) {
	if status != "" && !models.PaymentStatusMachine.Known(status) {
		return utils.PageResponse[*models.Payment]{}, utils.ValidationFailed("unknown payment status "+string(status), nil)
	}
	rows, total, err := s.payments.ListAll(ctx, status, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.Payment]{}, utils.Internal("Failed to list payments", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

// ------------------------------------------------------------------
// Webhook
// ------------------------------------------------------------------

// HandleWebhook verifies and applies one Stripe delivery. Each event id is
// applied at most once; a failed handler forgets the id so Stripe's retry
// gets another chance.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.StripeWebhookSecret)
	if err != nil {
		utils.Logger.WithError(err).Warn("Stripe webhook signature verification failed")
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	fresh, err := s.events.MarkProcessed(ctx, event.ID, string(event.Type))
	if err != nil {
		return fmt.Errorf("record stripe event %s: %w", event.ID, err)
	}
	if !fresh {
		utils.Logger.WithField("event_id", event.ID).Debug("Duplicate Stripe event ignored")
		s.countEvent(event.Type, "duplicate")
		return nil
	}

	result, err := s.dispatch(ctx, event)
	if err != nil {
		if ferr := s.events.Forget(ctx, event.ID); ferr != nil {
			utils.Logger.WithError(ferr).WithField("event_id", event.ID).Error("Failed to release Stripe event for retry")
		}
		s.countEvent(event.Type, "error")
		return err
	}
	s.countEvent(event.Type, result)
	return nil
}

func (s *PaymentService) dispatch(ctx context.Context, event stripe.Event) (string, error) {
	var to models.PaymentStatus
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		to = models.PaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		to = models.PaymentFailed
	case stripe.EventTypePaymentIntentProcessing:
		to = models.PaymentProcessing
	case stripe.EventTypePaymentIntentCanceled:
		to = models.PaymentCanceled
	default:
		utils.Logger.Infof("Unhandled Stripe event type received in rentals-service: %s", event.Type)
		return "ignored", nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		utils.Logger.WithError(err).Errorf("Could not parse payment intent in %s", event.Type)
		return "ignored", nil
	}

	p, err := s.paymentForIntent(ctx, &pi)
	if err != nil {
		return "", err
	}
	if p == nil {
		utils.Logger.WithField("intent_id", pi.ID).Warn("Stripe event for unknown payment ignored")
		return "ignored", nil
	}

	var reason *string
	if to == models.PaymentFailed && pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = &pi.LastPaymentError.Msg
	}
	err = s.applyIntentStatus(ctx, p.ID, to, reason)
	switch {
	case errors.Is(err, models.ErrAlreadyInState):
		if to == models.PaymentSucceeded {
			// a redelivery finishes a refund that failed the first time
			if _, err := s.refundIfClosed(ctx, p, pi.ID); err != nil {
				return "", err
			}
		}
		return "noop", nil
	case errors.Is(err, models.ErrTransitionNotDefined):
		// out-of-order delivery, e.g. processing after succeeded
		utils.Logger.WithField("payment_id", p.ID).Infof("Ignoring %s for payment in %s", event.Type, p.Status)
		return "stale", nil
	case err != nil:
		return "", err
	}

	if to == models.PaymentSucceeded {
		refunded, err := s.onSucceeded(ctx, p, pi.ID)
		if err != nil {
			return "", err
		}
		if refunded {
			return "refunded", nil
		}
	}
	return "applied", nil
}

// paymentForIntent prefers our payment_id metadata and falls back to the
// stored intent id.
func (s *PaymentService) paymentForIntent(ctx context.Context, pi *stripe.PaymentIntent) (*models.Payment, error) {
	if raw := pi.Metadata[constants.StripeMetadataPaymentIDKey]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			p, err := s.payments.GetByID(ctx, id)
			if err != nil || p != nil {
				return p, err
			}
		}
	}
	if pi.ID == "" {
		return nil, nil
	}
	return s.payments.GetByIntentID(ctx, pi.ID)
}

func (s *PaymentService) applyIntentStatus(ctx context.Context, paymentID uuid.UUID, to models.PaymentStatus, reason *string) error {
	_, err := s.payments.Mutate(ctx, paymentID, nil, func(p *models.Payment) (*models.AuditLog, error) {
		if err := models.PaymentStatusMachine.Check(p.Status, to, models.ActorSystem); err != nil {
			return nil, err
		}
		from := p.Status
		p.Status = to
		switch to {
		case models.PaymentSucceeded:
			now := time.Now().UTC()
			p.PaidAt = &now
			p.FailureReason = nil
		case models.PaymentFailed:
			p.FailureReason = reason
		}
		return auditEntry(systemIdentity, models.ActorSystem, models.AuditPayment, models.TargetPayment, p.ID, map[string]any{
			"from": from,
			"to":   to,
		}), nil
	})
	if err == nil {
		s.countPayment(to)
	}
	return err
}

// onSucceeded moves an application payment's application to review, or
// refunds the payment when the application closed before the money arrived.
func (s *PaymentService) onSucceeded(ctx context.Context, p *models.Payment, intentID string) (bool, error) {
	utils.Logger.WithField("payment_id", p.ID).Infof("Payment of %s succeeded", utils.FormatCents(p.AmountCents))

	var toName, toEmail string
	if p.Kind == models.PaymentKindApplication && p.ApplicationID != nil {
		app, err := s.applications.SystemTransition(ctx, *p.ApplicationID, models.ApplicationPaidUnderReview, "")
		switch {
		case err == nil:
			toName, toEmail = app.FullName, app.Email
		case errors.Is(err, models.ErrAlreadyInState):
		default:
			refunded, rerr := s.refundIfClosed(ctx, p, intentID)
			if rerr != nil || refunded {
				return refunded, rerr
			}
			// the money is in; a reviewer can still act on the application
			utils.Logger.WithError(err).WithField("application_id", *p.ApplicationID).Error("Failed to advance application after payment")
		}
		if toEmail == "" {
			toName, toEmail = s.applicantContact(ctx, *p.ApplicationID)
		}
	}
	if p.LeaseID != nil {
		if lease, err := s.leases.GetByID(ctx, *p.LeaseID); err == nil && lease != nil {
			toName, toEmail = s.applicantContact(ctx, lease.ApplicationID)
		}
	}

	what := "rent"
	if p.Kind == models.PaymentKindApplication {
		what = "application fee and deposit"
	} else if p.Period != nil {
		what = "rent for " + *p.Period
	}
	if toEmail == "" {
		return false, nil
	}
	s.notifier.Notify(ctx, Notice{
		ToName:  toName,
		ToEmail: toEmail,
		Subject: fmt.Sprintf(constants.EmailSubjectPaymentReceipt, utils.FormatCents(p.AmountCents)),
		Heading: "Payment received",
		Paragraphs: []string{
			fmt.Sprintf("We received your payment of %s for %s.", utils.FormatCents(p.AmountCents), what),
			"Payment reference: " + p.ID.String(),
		},
	})
	return false, nil
}

// refundIfClosed refunds a succeeded application payment whose application
// was withdrawn or rejected. It reports whether the payment is now refunded.
func (s *PaymentService) refundIfClosed(ctx context.Context, p *models.Payment, intentID string) (bool, error) {
	if p.Kind != models.PaymentKindApplication || p.ApplicationID == nil {
		return false, nil
	}
	app, err := s.apps.GetByID(ctx, *p.ApplicationID)
	if err != nil {
		return false, fmt.Errorf("load application %s: %w", *p.ApplicationID, err)
	}
	if app == nil || !applicationClosed(app.Status) {
		return false, nil
	}
	if p.StripePaymentIntentID != nil {
		intentID = *p.StripePaymentIntentID
	}
	if intentID == "" {
		return false, fmt.Errorf("payment %s has no payment intent to refund", p.ID)
	}

	rf, err := s.gateway.RefundIntent(ctx, intentID, constants.StripeRefundKeyPrefix+p.ID.String())
	if err != nil {
		return false, err
	}
	_, err = s.payments.Mutate(ctx, p.ID, nil, func(row *models.Payment) (*models.AuditLog, error) {
		if err := models.PaymentStatusMachine.Check(row.Status, models.PaymentRefunded, models.ActorSystem); err != nil {
			return nil, err
		}
		from := row.Status
		row.Status = models.PaymentRefunded
		row.StripeRefundID = &rf.ID
		return auditEntry(systemIdentity, models.ActorSystem, models.AuditPayment, models.TargetPayment, row.ID, map[string]any{
			"from":           from,
			"to":             models.PaymentRefunded,
			"refund_id":      rf.ID,
			"application_id": app.ID,
		}), nil
	})
	switch {
	case errors.Is(err, models.ErrAlreadyInState):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("record refund for payment %s: %w", p.ID, err)
	}
	s.countPayment(models.PaymentRefunded)
	utils.Logger.WithField("payment_id", p.ID).Infof("Refunded %s for %s application", utils.FormatCents(p.AmountCents), app.Status)

	s.notifier.Notify(ctx, Notice{
		ToName:  app.FullName,
		ToEmail: app.Email,
		Subject: fmt.Sprintf(constants.EmailSubjectPaymentRefunded, utils.FormatCents(p.AmountCents)),
		Heading: "Payment refunded",
		Paragraphs: []string{
			fmt.Sprintf("Your application was %s before your payment of %s completed, so we refunded it in full.",
				humanStatus(app.Status), utils.FormatCents(p.AmountCents)),
			"Payment reference: " + p.ID.String(),
		},
	})
	return true, nil
}

func applicationClosed(st models.ApplicationStatus) bool {
	return st == models.ApplicationWithdrawn || st == models.ApplicationRejected
}

// CancelOpenForApplication closes the application's open payment along with
// its PaymentIntent. When Stripe refuses the cancel the payment stays open
// and the webhook settles it.
func (s *PaymentService) CancelOpenForApplication(ctx context.Context, applicationID uuid.UUID) error {
	p, err := s.payments.FindOpenForApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load open payment: %w", err)
	}
	if p == nil {
		return nil
	}
	if p.StripePaymentIntentID != nil {
		if _, err := s.gateway.CancelIntent(ctx, *p.StripePaymentIntentID); err != nil {
			return err
		}
	}
	err = s.applyIntentStatus(ctx, p.ID, models.PaymentCanceled, nil)
	if errors.Is(err, models.ErrAlreadyInState) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel payment %s: %w", p.ID, err)
	}
	utils.Logger.WithField("payment_id", p.ID).Info("Canceled open payment for closed application")
	return nil
}

func (s *PaymentService) applicantContact(ctx context.Context, applicationID uuid.UUID) (string, string) {
	a, err := s.apps.GetByID(ctx, applicationID)
	if err != nil || a == nil {
		return "", ""
	}
	return a.FullName, a.Email
}

func (s *PaymentService) countPayment(status models.PaymentStatus) {
	if s.metrics != nil {
		s.metrics.Payments.WithLabelValues(string(status)).Inc()
	}
}

func (s *PaymentService) countEvent(t stripe.EventType, result string) {
	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(t), result).Inc()
	}
}
