package testhelpers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
)

/* ------------------------------------------------------------------
   Leases
------------------------------------------------------------------ */

type MemLeaseRepository struct {
	t *memTable[*models.Lease]
}

var _ repositories.LeaseRepository = (*MemLeaseRepository)(nil)

func NewMemLeaseRepository(audit *MemAuditLogRepository) *MemLeaseRepository {
	return &MemLeaseRepository{t: newMemTable(func(l *models.Lease) *models.Lease { cp := *l; return &cp }, audit)}
}

func (r *MemLeaseRepository) Create(_ context.Context, l *models.Lease) error {
	if len(r.t.list(func(x *models.Lease) bool { return x.ApplicationID == l.ApplicationID })) > 0 {
		return repositories.ErrDuplicate
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt, l.RowVersion = now, now, 1
	r.t.insert(l)
	return nil
}

func (r *MemLeaseRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Lease, error) {
	return r.t.get(id.String()), nil
}

func (r *MemLeaseRepository) GetByApplicationID(_ context.Context, applicationID uuid.UUID) (*models.Lease, error) {
	if out := r.t.list(func(l *models.Lease) bool { return l.ApplicationID == applicationID }); len(out) > 0 {
		return out[0], nil
	}
	return nil, nil
}

func (r *MemLeaseRepository) ListForUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*models.Lease, int, error) {
	out := r.t.list(func(l *models.Lease) bool { return l.TenantID == userID || l.OwnerID == userID })
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemLeaseRepository) ListActive(_ context.Context, day time.Time) ([]*models.Lease, error) {
	return r.t.list(func(l *models.Lease) bool { return l.ActiveOn(day) }), nil
}

func (r *MemLeaseRepository) FindActiveForTenantProperty(_ context.Context, tenantID, propertyID uuid.UUID, day time.Time) (*models.Lease, error) {
	out := r.t.list(func(l *models.Lease) bool {
		return l.TenantID == tenantID && l.PropertyID == propertyID && l.ActiveOn(day)
	})
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *MemLeaseRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.Lease]) (*models.Lease, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

/* ------------------------------------------------------------------
   Maintenance
------------------------------------------------------------------ */

type MemMaintenanceRequestRepository struct {
	t          *memTable[*models.MaintenanceRequest]
	properties *MemPropertyRepository
}

var _ repositories.MaintenanceRequestRepository = (*MemMaintenanceRequestRepository)(nil)

func NewMemMaintenanceRequestRepository(audit *MemAuditLogRepository, properties *MemPropertyRepository) *MemMaintenanceRequestRepository {
	clone := func(m *models.MaintenanceRequest) *models.MaintenanceRequest {
		cp := *m
		cp.ImageURLs = append([]string(nil), m.ImageURLs...)
		return &cp
	}
	return &MemMaintenanceRequestRepository{t: newMemTable(clone, audit), properties: properties}
}

func (r *MemMaintenanceRequestRepository) Create(_ context.Context, m *models.MaintenanceRequest) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt, m.RowVersion = now, now, 1
	r.t.insert(m)
	return nil
}

func (r *MemMaintenanceRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	return r.t.get(id.String()), nil
}

var priorityRank = map[models.MaintenancePriority]int{
	models.PriorityEmergency: 0, models.PriorityHigh: 1, models.PriorityNormal: 2, models.PriorityLow: 3,
}

func (r *MemMaintenanceRequestRepository) List(_ context.Context, f models.MaintenanceFilters) ([]*models.MaintenanceRequest, int, error) {
	out := r.t.list(func(m *models.MaintenanceRequest) bool {
		if f.TenantID != nil && m.TenantID != *f.TenantID {
			return false
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, m.Status) {
			return false
		}
		if f.Priority != "" && m.Priority != f.Priority {
			return false
		}
		if f.OwnerID != nil {
			p := r.properties.t.get(m.PropertyID.String())
			if p == nil || p.OwnerID != *f.OwnerID {
				return false
			}
		}
		return true
	})
	sortStable(out, func(a, b *models.MaintenanceRequest) bool { return priorityRank[a.Priority] < priorityRank[b.Priority] })
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

func (r *MemMaintenanceRequestRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.MaintenanceRequest]) (*models.MaintenanceRequest, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

func (r *MemMaintenanceRequestRepository) CountOpen(_ context.Context) (int, error) {
	return len(r.t.list(func(m *models.MaintenanceRequest) bool {
		return m.Status == models.MaintenanceOpen || m.Status == models.MaintenanceInProgress
	})), nil
}

/* ------------------------------------------------------------------
   Messaging
------------------------------------------------------------------ */

type MemMessageRepository struct {
	mu       sync.Mutex
	threads  []*models.Thread
	messages []*models.Message
}

var _ repositories.MessageRepository = (*MemMessageRepository)(nil)

func (r *MemMessageRepository) GetOrCreateThread(_ context.Context, t *models.Thread) (*models.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.threads {
		if x.TenantID == t.TenantID && x.PropertyID == t.PropertyID {
			cp := *x
			return &cp, nil
		}
	}
	now := time.Now().UTC()
	cp := *t
	cp.CreatedAt, cp.LastMessageAt = now, now
	r.threads = append(r.threads, &cp)
	out := cp
	return &out, nil
}

func (r *MemMessageRepository) GetThread(_ context.Context, id uuid.UUID) (*models.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.threads {
		if x.ID == id {
			cp := *x
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemMessageRepository) ListThreads(_ context.Context, userID uuid.UUID, limit, offset int) ([]*models.Thread, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Thread
	for _, x := range r.threads {
		if !x.HasParticipant(userID) {
			continue
		}
		cp := *x
		for _, m := range r.messages {
			if m.ThreadID == x.ID && m.SenderID != userID && m.ReadAt == nil {
				cp.UnreadCount++
			}
		}
		out = append(out, &cp)
	}
	sortStable(out, func(a, b *models.Thread) bool { return a.LastMessageAt.After(b.LastMessageAt) })
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemMessageRepository) CreateMessage(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.CreatedAt = time.Now().UTC()
	cp := *m
	r.messages = append(r.messages, &cp)
	for _, x := range r.threads {
		if x.ID == m.ThreadID {
			x.LastMessageAt = m.CreatedAt
		}
	}
	return nil
}

func (r *MemMessageRepository) ListMessages(_ context.Context, threadID uuid.UUID, limit, offset int) ([]*models.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemMessageRepository) MarkRead(_ context.Context, threadID, readerID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ThreadID == threadID && m.SenderID != readerID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

/* ------------------------------------------------------------------
   Saved properties
------------------------------------------------------------------ */

type MemSavedPropertyRepository struct {
	mu   sync.Mutex
	rows []models.SavedProperty
}

var _ repositories.SavedPropertyRepository = (*MemSavedPropertyRepository)(nil)

func (r *MemSavedPropertyRepository) Save(_ context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.TenantID == tenantID && s.PropertyID == propertyID {
			return false, nil
		}
	}
	r.rows = append(r.rows, models.SavedProperty{TenantID: tenantID, PropertyID: propertyID, CreatedAt: time.Now().UTC()})
	return true, nil
}

func (r *MemSavedPropertyRepository) Remove(_ context.Context, tenantID, propertyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, s := range r.rows {
		if s.TenantID != tenantID || s.PropertyID != propertyID {
			kept = append(kept, s)
		}
	}
	r.rows = kept
	return nil
}

func (r *MemSavedPropertyRepository) ListPropertyIDs(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]uuid.UUID, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].TenantID == tenantID {
			ids = append(ids, r.rows[i].PropertyID)
		}
	}
	return paginate(ids, limit, offset), len(ids), nil
}

func (r *MemSavedPropertyRepository) IsSaved(_ context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.TenantID == tenantID && s.PropertyID == propertyID {
			return true, nil
		}
	}
	return false, nil
}

/* ------------------------------------------------------------------
   Documents
------------------------------------------------------------------ */

type MemDocumentRepository struct {
	mu   sync.Mutex
	rows []*models.Document
}

var _ repositories.DocumentRepository = (*MemDocumentRepository)(nil)

func (r *MemDocumentRepository) Create(_ context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.CreatedAt = time.Now().UTC()
	cp := *d
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MemDocumentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemDocumentRepository) filter(keep func(*models.Document) bool) []*models.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Document
	for _, d := range r.rows {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

func (r *MemDocumentRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Document, error) {
	return r.filter(func(d *models.Document) bool { return d.UserID == userID }), nil
}

func (r *MemDocumentRepository) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]*models.Document, error) {
	return r.filter(func(d *models.Document) bool {
		return d.ApplicationID != nil && *d.ApplicationID == applicationID
	}), nil
}

func (r *MemDocumentRepository) SetStatus(_ context.Context, id uuid.UUID, status models.DocumentStatus, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.ID == id {
			d.Status, d.SizeBytes = status, size
		}
	}
	return nil
}

func (r *MemDocumentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, d := range r.rows {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.rows = kept
	return nil
}

/* ------------------------------------------------------------------
   Inquiries
------------------------------------------------------------------ */

type MemInquiryRepository struct {
	mu         sync.Mutex
	rows       []*models.Inquiry
	properties *MemPropertyRepository
}

var _ repositories.InquiryRepository = (*MemInquiryRepository)(nil)

func (r *MemInquiryRepository) Create(_ context.Context, i *models.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	i.CreatedAt, i.UpdatedAt = now, now
	cp := *i
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MemInquiryRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.rows {
		if i.ID == id {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemInquiryRepository) List(_ context.Context, ownerID *uuid.UUID, status models.InquiryStatus, limit, offset int) ([]*models.Inquiry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Inquiry
	for k := len(r.rows) - 1; k >= 0; k-- {
		i := r.rows[k]
		if status != "" && i.Status != status {
			continue
		}
		if ownerID != nil {
			if i.PropertyID == nil {
				continue
			}
			p := r.properties.t.get(i.PropertyID.String())
			if p == nil || p.OwnerID != *ownerID {
				continue
			}
		}
		cp := *i
		out = append(out, &cp)
	}
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemInquiryRepository) SetStatus(_ context.Context, id uuid.UUID, status models.InquiryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.rows {
		if i.ID == id {
			i.Status = status
			i.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *MemInquiryRepository) CountRecentFromEmail(_ context.Context, email string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, i := range r.rows {
		if strings.EqualFold(i.Email, email) && !i.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

/* ------------------------------------------------------------------
   Onboarding
------------------------------------------------------------------ */

type MemOnboardingRepository struct {
	t *memTable[*models.OnboardingState]
}

var _ repositories.OnboardingRepository = (*MemOnboardingRepository)(nil)

func NewMemOnboardingRepository() *MemOnboardingRepository {
	clone := func(o *models.OnboardingState) *models.OnboardingState {
		cp := *o
		cp.CompletedSteps = append([]models.OnboardingStep(nil), o.CompletedSteps...)
		return &cp
	}
	return &MemOnboardingRepository{t: newMemTable(clone, nil)}
}

func (r *MemOnboardingRepository) GetOrCreate(_ context.Context, userID uuid.UUID, role models.UserRole) (*models.OnboardingState, error) {
	if cur := r.t.get(userID.String()); cur != nil {
		return cur, nil
	}
	now := time.Now().UTC()
	r.t.insert(&models.OnboardingState{
		Versioned: models.Versioned{RowVersion: 1},
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return r.t.get(userID.String()), nil
}

func (r *MemOnboardingRepository) Mutate(ctx context.Context, userID uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.OnboardingState]) (*models.OnboardingState, error) {
	return r.t.mutate(ctx, userID.String(), expected, fn)
}

/* ------------------------------------------------------------------
   Error logs
------------------------------------------------------------------ */

type MemErrorLogRepository struct {
	mu   sync.Mutex
	rows []*models.ErrorLog
}

var _ repositories.ErrorLogRepository = (*MemErrorLogRepository)(nil)

func (r *MemErrorLogRepository) Create(_ context.Context, e *models.ErrorLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	cp := *e
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MemErrorLogRepository) List(_ context.Context, source models.ErrorSource, limit, offset int) ([]*models.ErrorLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ErrorLog
	for k := len(r.rows) - 1; k >= 0; k-- {
		if source == "" || r.rows[k].Source == source {
			cp := *r.rows[k]
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemErrorLogRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.rows[:0]
	for _, e := range r.rows {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.rows = kept
	return n, nil
}
