package routes

const (
	// Health
	Health  = "/health"
	Metrics = "/metrics"

	// ───────────────────────────────
	// Profiles
	// ───────────────────────────────
	Me      = "/api/v1/me"
	Profile = "/api/v1/profiles/{id}"

	// ───────────────────────────────
	// Properties (public + owner portal)
	// ───────────────────────────────
	Properties          = "/api/v1/properties"
	Property            = "/api/v1/properties/{id}"
	OwnerProperties     = "/api/v1/owner/properties"
	OwnerProperty       = "/api/v1/owner/properties/{id}"
	OwnerPropertyStatus = "/api/v1/owner/properties/{id}/status"

	// ───────────────────────────────
	// Applications
	// ───────────────────────────────
	Applications             = "/api/v1/applications"
	Application              = "/api/v1/applications/{id}"
	ApplicationHistory       = "/api/v1/applications/{id}/history"
	ApplicationTransition    = "/api/v1/applications/{id}/transition"
	ApplicationPaymentIntent = "/api/v1/applications/{id}/payment-intent"
	ApplicationLease         = "/api/v1/applications/{id}/lease"
	OwnerApplications        = "/api/v1/owner/applications"

	// ───────────────────────────────
	// Payments / Stripe
	// ───────────────────────────────
	Payments          = "/api/v1/payments"
	StripeWebhook     = "/api/v1/stripe/webhook"
	RentPaymentIntent = "/api/v1/leases/{id}/rent-payment-intent"

	// ───────────────────────────────
	// Leases
	// ───────────────────────────────
	Leases    = "/api/v1/leases"
	Lease     = "/api/v1/leases/{id}"
	LeaseSend = "/api/v1/leases/{id}/send"
	LeaseSign = "/api/v1/leases/{id}/sign"
	LeaseVoid = "/api/v1/leases/{id}/void"

	// ───────────────────────────────
	// Maintenance
	// ───────────────────────────────
	MaintenanceRequests          = "/api/v1/maintenance-requests"
	MaintenanceRequest           = "/api/v1/maintenance-requests/{id}"
	MaintenanceRequestTransition = "/api/v1/maintenance-requests/{id}/transition"

	// ───────────────────────────────
	// Messaging
	// ───────────────────────────────
	Threads        = "/api/v1/threads"
	ThreadMessages = "/api/v1/threads/{id}/messages"
	WebSocket      = "/api/v1/ws"

	// ───────────────────────────────
	// Saved properties
	// ───────────────────────────────
	SavedProperties = "/api/v1/saved-properties"
	SavedProperty   = "/api/v1/saved-properties/{property_id}"

	// ───────────────────────────────
	// Documents
	// ───────────────────────────────
	Documents        = "/api/v1/documents"
	Document         = "/api/v1/documents/{id}"
	DocumentComplete = "/api/v1/documents/{id}/complete"
	DocumentDownload = "/api/v1/documents/{id}/download"

	// ───────────────────────────────
	// Inquiries
	// ───────────────────────────────
	Inquiries      = "/api/v1/inquiries"
	InquiryStatus  = "/api/v1/inquiries/{id}/status"
	OwnerInquiries = "/api/v1/owner/inquiries"

	// ───────────────────────────────
	// Onboarding
	// ───────────────────────────────
	Onboarding     = "/api/v1/onboarding"
	OnboardingStep = "/api/v1/onboarding/steps/{step}"

	// ───────────────────────────────
	// Error log
	// ───────────────────────────────
	ErrorLogs = "/api/v1/error-logs"

	// ───────────────────────────────
	// Admin (relative to AdminBase)
	// ───────────────────────────────
	AdminBase         = "/api/v1/admin"
	AdminStats        = "/stats"
	AdminApplications = "/applications"
	AdminPayments     = "/payments"
	AdminInquiries    = "/inquiries"
	AdminErrorLogs    = "/error-logs"
	AdminAuditLogs    = "/audit-logs"
	AdminUserRole     = "/users/{id}/role"
	AdminSendEmail    = "/send-email"
)
