package testhelpers

// MemStore bundles one in-memory implementation of every repository.
type MemStore struct {
	Audit        *MemAuditLogRepository
	Profiles     *MemProfileRepository
	Properties   *MemPropertyRepository
	Applications *MemApplicationRepository
	Payments     *MemPaymentRepository
	StripeEvents *MemStripeEventRepository
	Leases       *MemLeaseRepository
	Maintenance  *MemMaintenanceRequestRepository
	Messages     *MemMessageRepository
	Saved        *MemSavedPropertyRepository
	Documents    *MemDocumentRepository
	Inquiries    *MemInquiryRepository
	Onboarding   *MemOnboardingRepository
	ErrorLogs    *MemErrorLogRepository
}

func NewMemStore() *MemStore {
	audit := &MemAuditLogRepository{}
	props := NewMemPropertyRepository(audit)
	return &MemStore{
		Audit:        audit,
		Profiles:     NewMemProfileRepository(audit),
		Properties:   props,
		Applications: NewMemApplicationRepository(audit, props),
		Payments:     NewMemPaymentRepository(audit),
		StripeEvents: &MemStripeEventRepository{},
		Leases:       NewMemLeaseRepository(audit),
		Maintenance:  NewMemMaintenanceRequestRepository(audit, props),
		Messages:     &MemMessageRepository{},
		Saved:        &MemSavedPropertyRepository{},
		Documents:    &MemDocumentRepository{},
		Inquiries:    &MemInquiryRepository{properties: props},
		Onboarding:   NewMemOnboardingRepository(),
		ErrorLogs:    &MemErrorLogRepository{},
	}
}
