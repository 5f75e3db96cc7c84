package constants

import "time"

// Cron schedules (UTC)
const (
	PaymentExpiryCronSpec   = "@every 15m"
	LeaseRemindersCronSpec  = "0 13 * * *" // 09:00 America/New_York in summer
	ErrorLogPruneCronSpec   = "30 3 * * *"
	RateLimiterCleanupSpec  = "@every 10m"
	PaymentExpiryJobTimeout = 2 * time.Minute
	LeaseReminderJobTimeout = 5 * time.Minute
)

// Lease and rent settings
const (
	RentReminderDaysBefore   = 3
	LeaseExpiryNoticeDays    = 30
	MinLeaseTermMonths       = 1
	MaxLeaseTermMonths       = 36
	MinRentDueDay            = 1
	MaxRentDueDay            = 28
	ErrorLogRetention        = 90 * 24 * time.Hour
	DefaultSearchRadiusMiles = 25.0
	MaxSearchRadiusMiles     = 200.0
)

// RadiusCandidateLimit caps the bounding-box rows a radius search loads
// before the haversine filter.
const RadiusCandidateLimit = 2000

// Rate limits
const (
	InquiriesPerMinute  = 5
	ErrorLogsPerMinute  = 30
	InquiryDuplicateTTL = 10 * time.Minute
	MaxInquiriesPerTTL  = 3
)

// Stripe metadata keys on PaymentIntents
const (
	StripeMetadataPaymentIDKey     = "payment_id"
	StripeMetadataApplicationIDKey = "application_id"
	StripeMetadataLeaseIDKey       = "lease_id"
	StripeMetadataKindKey          = "kind"
	StripeIdempotencyKeyPrefix     = "payment-"
	StripeRefundKeyPrefix          = "refund-"
)

// Messaging
const (
	MaxMessageBodyChars = 4000
	WSWriteWait         = 10 * time.Second
	WSPongWait          = 60 * time.Second
	WSPingPeriod        = (WSPongWait * 9) / 10
	WSSendBuffer        = 16
)

// Storage
const (
	SignedUploadURLTTL    = 2 * time.Hour
	SignedDownloadURLTTL  = 10 * time.Minute
	StorageRequestTimeout = 10 * time.Second
)

// Email subjects
const (
	EmailSubjectApplicationReceived = "We received your application for %s"
	EmailSubjectNewApplication      = "New application for %s"
	EmailSubjectApplicationUpdate   = "Your application for %s is now %s"
	EmailSubjectPaymentReceipt      = "Payment received: %s"
	EmailSubjectPaymentRefunded     = "Payment refunded: %s"
	EmailSubjectLeaseReady          = "Your lease for %s is ready to sign"
	EmailSubjectLeaseSigned         = "Lease fully signed: %s"
	EmailSubjectRentReminder        = "Rent of %s is due %s"
	EmailSubjectLeaseExpiring       = "Your lease for %s ends on %s"
	EmailSubjectMaintenance         = "Maintenance request (%s): %s"
	EmailSubjectNewMessage          = "New message about %s"
	EmailSubjectInquiry             = "New inquiry from %s"
)

const RejectReasonPropertyLeased = "property leased to another applicant"
const RejectReasonPaymentExpired = "payment window expired"
