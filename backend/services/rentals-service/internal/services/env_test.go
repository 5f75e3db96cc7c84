package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v82"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	internal_utils "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/utils"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-testhelpers"
)

// ------------------------------------------------------------------
// Fakes for the outbound integrations
// ------------------------------------------------------------------

type fakeMailer struct {
	mu   sync.Mutex
	sent []OutboundEmail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg OutboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) To(email string) []OutboundEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboundEmail
	for _, msg := range m.sent {
		if msg.ToEmail == email {
			out = append(out, msg)
		}
	}
	return out
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to+": "+body)
	return nil
}

type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*stripe.PaymentIntent
	requests  []IntentRequest
	refunds   map[string]string // idempotency key -> intent id
	err       error
	cancelErr error
	refundErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*stripe.PaymentIntent{}, refunds: map[string]string{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req IntentRequest) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("pi_test_%d", len(g.requests))
	pi := &stripe.PaymentIntent{
		ID:           id,
		Amount:       req.AmountCents,
		Currency:     stripe.Currency(req.Currency),
		ClientSecret: id + "_secret_abc",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Metadata:     req.Metadata,
	}
	g.intents[id] = pi
	return pi, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, intentID string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	return pi, nil
}

func (g *fakeGateway) CancelIntent(_ context.Context, intentID string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	pi, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	pi.Status = stripe.PaymentIntentStatusCanceled
	return pi, nil
}

func (g *fakeGateway) RefundIntent(_ context.Context, intentID, idempotencyKey string) (*stripe.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds[idempotencyKey] = intentID
	return &stripe.Refund{ID: "re_" + intentID, Status: stripe.RefundStatusSucceeded}, nil
}

func (g *fakeGateway) intentStatus(intentID string) stripe.PaymentIntentStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intents[intentID].Status
}

func (g *fakeGateway) setStatus(intentID string, status stripe.PaymentIntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intentID].Status = status
}

type fakeStorage struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (s *fakeStorage) SignedUploadURL(_ context.Context, path string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://storage.test/upload/" + path + "?token=up", nil
}

func (s *fakeStorage) SignedDownloadURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + path + "?token=down", nil
}

func (s *fakeStorage) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return nil
}

type fakeTriager struct {
	result *TriageResult
	err    error
	calls  int
}

func (f *fakeTriager) Triage(context.Context, string, string) (*TriageResult, error) {
	f.calls++
	return f.result, f.err
}

type published struct {
	userIDs []uuid.UUID
	event   any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(userIDs []uuid.UUID, event any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userIDs: userIDs, event: event})
}

type fakeAuthAdmin struct {
	roles map[uuid.UUID]models.UserRole
}

func (a *fakeAuthAdmin) SetRole(_ context.Context, userID uuid.UUID, role models.UserRole) error {
	a.roles[userID] = role
	return nil
}

// ------------------------------------------------------------------
// Environment
// ------------------------------------------------------------------

type testEnv struct {
	h   *testhelpers.TestHelper
	cfg *config.Config

	mailer    *fakeMailer
	sms       *fakeSMS
	gateway   *fakeGateway
	storage   *fakeStorage
	triager   *fakeTriager
	publisher *fakePublisher
	authAdmin *fakeAuthAdmin
	metrics   *internal_utils.Metrics

	notifier     *NotificationService
	profiles     *ProfileService
	listings     *PropertyService
	applications *ApplicationService
	payments     *PaymentService
	leases       *LeaseService
	maintenance  *MaintenanceService
	messaging    *MessagingService
	saved        *SavedPropertyService
	documents    *DocumentService
	inquiries    *InquiryService
	onboarding   *OnboardingService
	errorLogs    *ErrorLogService
	admin        *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	h := testhelpers.NewTestHelper(t)
	cfg := &config.Config{
		OrganizationName:              config.OrganizationName,
		AppName:                       "rentals-service",
		Env:                           "test",
		AppUrl:                        "https://app.palmsestate.test",
		StripeWebhookSecret:           h.StripeWebhookSecret,
		AdminInboxEmail:               "admin@palmsestate.test",
		LDFlag_PaymentPendingTTLHours: 72,
	}
	e := &testEnv{
		h:         h,
		cfg:       cfg,
		mailer:    &fakeMailer{},
		sms:       &fakeSMS{},
		gateway:   newFakeGateway(),
		storage:   &fakeStorage{},
		triager:   &fakeTriager{},
		publisher: &fakePublisher{},
		authAdmin: &fakeAuthAdmin{roles: map[uuid.UUID]models.UserRole{}},
		metrics:   internal_utils.NewMetrics(prometheus.NewRegistry()),
	}
	st := h.Store

	e.notifier = NewNotificationService(cfg, e.mailer, e.sms, e.metrics)
	e.profiles = NewProfileService(st.Profiles, e.authAdmin)
	e.listings = NewPropertyService(st.Properties, nil, nil)
	e.applications = NewApplicationService(cfg, st.Applications, st.Properties, st.Profiles, st.Audit, e.listings, e.notifier, e.metrics)
	e.payments = NewPaymentService(cfg, st.Payments, st.Applications, st.Leases, st.Properties, st.StripeEvents, e.applications, e.gateway, e.notifier, e.metrics)
	e.applications.SetPaymentCanceler(e.payments)
	e.leases = NewLeaseService(cfg, st.Leases, st.Applications, st.Properties, st.Profiles, st.Payments, e.listings, e.notifier)
	e.maintenance = NewMaintenanceService(cfg, st.Maintenance, st.Leases, st.Properties, st.Profiles, e.triager, e.notifier)
	e.messaging = NewMessagingService(cfg, st.Messages, st.Properties, st.Profiles, e.publisher, e.notifier)
	e.saved = NewSavedPropertyService(st.Saved, e.listings)
	e.documents = NewDocumentService(st.Documents, st.Applications, st.Leases, st.Properties, e.storage)
	e.inquiries = NewInquiryService(cfg, st.Inquiries, st.Properties, st.Profiles, e.notifier,
		func(context.Context, string, string, bool) (bool, error) { return true, nil })
	e.onboarding = NewOnboardingService(st.Onboarding)
	e.errorLogs = NewErrorLogService(st.ErrorLogs)
	e.admin = NewAdminService(st.Applications, st.Properties, st.Payments, st.Maintenance, st.Audit, e.notifier)
	return e
}

func identity(p *models.Profile) *middleware.Identity {
	return &middleware.Identity{UserID: p.ID, Email: p.Email, Role: p.Role}
}

// listing creates an owner with one available property.
func (e *testEnv) listing() (*models.Profile, *models.Property) {
	owner := e.h.CreateTestProfile(models.RoleOwner, "owner")
	return owner, e.h.CreateTestProperty(owner.ID)
}
