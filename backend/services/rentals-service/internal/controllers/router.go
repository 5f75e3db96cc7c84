package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/routes"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// Controllers bundles every handler set the router mounts.
type Controllers struct {
	Health       *HealthController
	Profiles     *ProfileController
	Properties   *PropertyController
	Applications *ApplicationController
	Payments     *PaymentController
	Leases       *LeaseController
	Maintenance  *MaintenanceController
	Messaging    *MessagingController
	Saved        *SavedPropertyController
	Documents    *DocumentController
	Inquiries    *InquiryController
	Onboarding   *OnboardingController
	ErrorLogs    *ErrorLogController
	Admin        *AdminController
}

type RouterOptions struct {
	JWTSecret       []byte
	Gatherer        prometheus.Gatherer
	HTTPMetrics     *middleware.HTTPMetrics
	ErrorRecorder   middleware.ServerErrorRecorder
	InquiryLimiter  *middleware.RateLimiter
	ErrorLogLimiter *middleware.RateLimiter
}

// NewRouter mounts every route. Public routes come first, then optional
// auth, authenticated, owner and admin groups.
func NewRouter(opts RouterOptions, c Controllers) *mux.Router {
	router := mux.NewRouter()
	if opts.HTTPMetrics != nil {
		router.Use(opts.HTTPMetrics.Middleware)
	}
	router.Use(middleware.RequestLogging, middleware.RecoveryMiddleware(opts.ErrorRecorder))

	// Platform
	router.HandleFunc(routes.Health, c.Health.HealthCheckHandler).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		router.Handle(routes.Metrics, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Stripe webhook (signature verified, no JWT)
	router.HandleFunc(routes.StripeWebhook, c.Payments.WebhookHandler).Methods(http.MethodPost)

	// Public search, listing detail and profiles; identity is attached when present
	optional := router.NewRoute().Subrouter()
	optional.Use(middleware.OptionalAuthMiddleware(opts.JWTSecret))
	optional.HandleFunc(routes.Properties, c.Properties.SearchHandler).Methods(http.MethodGet)
	optional.HandleFunc(routes.Property, c.Properties.GetHandler).Methods(http.MethodGet)
	optional.HandleFunc(routes.Profile, c.Profiles.GetPublicHandler).Methods(http.MethodGet)

	inquiries := router.NewRoute().Subrouter()
	inquiries.Use(middleware.OptionalAuthMiddleware(opts.JWTSecret), opts.InquiryLimiter.Handler)
	inquiries.HandleFunc(routes.Inquiries, c.Inquiries.CreateHandler).Methods(http.MethodPost)

	errorLogs := router.NewRoute().Subrouter()
	errorLogs.Use(middleware.OptionalAuthMiddleware(opts.JWTSecret), opts.ErrorLogLimiter.Handler)
	errorLogs.HandleFunc(routes.ErrorLogs, c.ErrorLogs.ReportHandler).Methods(http.MethodPost)

	// Admin
	admin := router.PathPrefix(routes.AdminBase).Subrouter()
	admin.Use(middleware.AuthMiddleware(opts.JWTSecret), middleware.AdminOnly)
	admin.HandleFunc(routes.AdminStats, c.Admin.StatsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminApplications, c.Applications.ListHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminPayments, c.Payments.ListAllHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminInquiries, c.Inquiries.ListHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminErrorLogs, c.ErrorLogs.ListHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminAuditLogs, c.Admin.AuditLogsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminUserRole, c.Profiles.ChangeRoleHandler).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminSendEmail, c.Admin.SendEmailHandler).Methods(http.MethodPost)

	// Owner portal
	owner := router.NewRoute().Subrouter()
	owner.Use(middleware.AuthMiddleware(opts.JWTSecret), middleware.RequireRole(models.RoleOwner, models.RoleAdmin))
	owner.HandleFunc(routes.OwnerProperties, c.Properties.ListOwnedHandler).Methods(http.MethodGet)
	owner.HandleFunc(routes.OwnerProperties, c.Properties.CreateHandler).Methods(http.MethodPost)
	owner.HandleFunc(routes.OwnerProperty, c.Properties.UpdateHandler).Methods(http.MethodPut)
	owner.HandleFunc(routes.OwnerProperty, c.Properties.DeleteHandler).Methods(http.MethodDelete)
	owner.HandleFunc(routes.OwnerPropertyStatus, c.Properties.ChangeStatusHandler).Methods(http.MethodPatch)
	owner.HandleFunc(routes.OwnerApplications, c.Applications.ListHandler).Methods(http.MethodGet)
	owner.HandleFunc(routes.OwnerInquiries, c.Inquiries.ListHandler).Methods(http.MethodGet)
	owner.HandleFunc(routes.ApplicationLease, c.Leases.CreateHandler).Methods(http.MethodPost)
	owner.HandleFunc(routes.LeaseSend, c.Leases.SendHandler).Methods(http.MethodPost)
	owner.HandleFunc(routes.LeaseVoid, c.Leases.VoidHandler).Methods(http.MethodPost)
	owner.HandleFunc(routes.InquiryStatus, c.Inquiries.SetStatusHandler).Methods(http.MethodPatch)

	// Any signed-in user; services scope rows by role
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(opts.JWTSecret))

	secured.HandleFunc(routes.Me, c.Profiles.GetMeHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Me, c.Profiles.UpdateMeHandler).Methods(http.MethodPut)

	secured.HandleFunc(routes.Applications, c.Applications.SubmitHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.Applications, c.Applications.ListHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Application, c.Applications.GetHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationHistory, c.Applications.HistoryHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationTransition, c.Applications.TransitionHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApplicationPaymentIntent, c.Payments.CreateApplicationIntentHandler).Methods(http.MethodPost)

	secured.HandleFunc(routes.Payments, c.Payments.ListMineHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.RentPaymentIntent, c.Payments.CreateRentIntentHandler).Methods(http.MethodPost)

	secured.HandleFunc(routes.Leases, c.Leases.ListHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Lease, c.Leases.GetHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.LeaseSign, c.Leases.SignHandler).Methods(http.MethodPost)

	secured.HandleFunc(routes.MaintenanceRequests, c.Maintenance.CreateHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.MaintenanceRequests, c.Maintenance.ListHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.MaintenanceRequest, c.Maintenance.GetHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.MaintenanceRequestTransition, c.Maintenance.TransitionHandler).Methods(http.MethodPost)

	secured.HandleFunc(routes.Threads, c.Messaging.StartThreadHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.Threads, c.Messaging.ListThreadsHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ThreadMessages, c.Messaging.ListMessagesHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ThreadMessages, c.Messaging.PostMessageHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.WebSocket, c.Messaging.WebSocketHandler).Methods(http.MethodGet)

	secured.HandleFunc(routes.SavedProperties, c.Saved.ListHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.SavedProperty, c.Saved.SaveHandler).Methods(http.MethodPut)
	secured.HandleFunc(routes.SavedProperty, c.Saved.RemoveHandler).Methods(http.MethodDelete)

	secured.HandleFunc(routes.Documents, c.Documents.CreateHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.Documents, c.Documents.ListHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Document, c.Documents.GetHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Document, c.Documents.DeleteHandler).Methods(http.MethodDelete)
	secured.HandleFunc(routes.DocumentComplete, c.Documents.CompleteHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.DocumentDownload, c.Documents.DownloadHandler).Methods(http.MethodGet)

	secured.HandleFunc(routes.Onboarding, c.Onboarding.GetHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.OnboardingStep, c.Onboarding.CompleteStepHandler).Methods(http.MethodPost)

	return router
}
