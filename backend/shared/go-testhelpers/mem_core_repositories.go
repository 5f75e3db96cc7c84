package testhelpers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

/* ------------------------------------------------------------------
   Audit log
------------------------------------------------------------------ */

type MemAuditLogRepository struct {
	mu   sync.Mutex
	rows []*models.AuditLog
}

var _ repositories.AuditLogRepository = (*MemAuditLogRepository)(nil)

func (r *MemAuditLogRepository) Create(_ context.Context, e *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MemAuditLogRepository) ListByTarget(_ context.Context, t models.AuditTargetType, id uuid.UUID) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.rows {
		if e.TargetType == t && e.TargetID == id {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemAuditLogRepository) List(_ context.Context, t models.AuditTargetType, limit, offset int) ([]*models.AuditLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for i := len(r.rows) - 1; i >= 0; i-- {
		if t == "" || r.rows[i].TargetType == t {
			cp := *r.rows[i]
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

// All returns every entry in insertion order.
func (r *MemAuditLogRepository) All() []*models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.AuditLog(nil), r.rows...)
}

/* ------------------------------------------------------------------
   Profiles
------------------------------------------------------------------ */

type MemProfileRepository struct {
	t *memTable[*models.Profile]
}

var _ repositories.ProfileRepository = (*MemProfileRepository)(nil)

func NewMemProfileRepository(audit *MemAuditLogRepository) *MemProfileRepository {
	return &MemProfileRepository{t: newMemTable(func(p *models.Profile) *models.Profile { cp := *p; return &cp }, audit)}
}

func (r *MemProfileRepository) EnsureExists(_ context.Context, p *models.Profile) (*models.Profile, error) {
	if cur := r.t.get(p.ID.String()); cur != nil {
		return cur, nil
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt, p.RowVersion = now, now, 1
	r.t.insert(p)
	return r.t.get(p.ID.String()), nil
}

func (r *MemProfileRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.t.get(id.String()), nil
}

func (r *MemProfileRepository) ListByRole(_ context.Context, role models.UserRole) ([]*models.Profile, error) {
	return r.t.list(func(p *models.Profile) bool { return p.Role == role }), nil
}

func (r *MemProfileRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.Profile]) (*models.Profile, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

/* ------------------------------------------------------------------
   Properties
------------------------------------------------------------------ */

type MemPropertyRepository struct {
	t *memTable[*models.Property]
}

var _ repositories.PropertyRepository = (*MemPropertyRepository)(nil)

func cloneProperty(p *models.Property) *models.Property {
	cp := *p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.ImageURLs = append([]string(nil), p.ImageURLs...)
	return &cp
}

func NewMemPropertyRepository(audit *MemAuditLogRepository) *MemPropertyRepository {
	return &MemPropertyRepository{t: newMemTable(cloneProperty, audit)}
}

func (r *MemPropertyRepository) Create(_ context.Context, p *models.Property) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt, p.RowVersion = now, now, 1
	r.t.insert(p)
	return nil
}

func (r *MemPropertyRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	return r.t.get(id.String()), nil
}

func (r *MemPropertyRepository) Search(_ context.Context, f models.PropertyFilters) ([]*models.Property, int, error) {
	q := strings.ToLower(f.Query)
	out := r.t.list(func(p *models.Property) bool {
		switch {
		case p.DeletedAt != nil:
			return false
		case f.OwnerID != nil && p.OwnerID != *f.OwnerID:
			return false
		case len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status):
			return false
		case f.City != "" && !strings.EqualFold(p.City, f.City):
			return false
		case f.State != "" && p.State != f.State:
			return false
		case f.PropertyType != "" && p.PropertyType != f.PropertyType:
			return false
		case f.MinRentCents > 0 && p.MonthlyRentCents < f.MinRentCents:
			return false
		case f.MaxRentCents > 0 && p.MonthlyRentCents > f.MaxRentCents:
			return false
		case f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms:
			return false
		case f.MinBathrooms > 0 && p.Bathrooms < f.MinBathrooms:
			return false
		case f.PetsAllowed != nil && p.PetsAllowed != *f.PetsAllowed:
			return false
		case q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q):
			return false
		}
		if b := f.Bounds; b != nil {
			if p.Latitude == nil || p.Longitude == nil {
				return false
			}
			if *p.Latitude < b.MinLat || *p.Latitude > b.MaxLat || *p.Longitude < b.MinLng || *p.Longitude > b.MaxLng {
				return false
			}
		}
		return true
	})
	switch f.Sort {
	case "rent_asc":
		sortStable(out, func(a, b *models.Property) bool { return a.MonthlyRentCents < b.MonthlyRentCents })
	case "rent_desc":
		sortStable(out, func(a, b *models.Property) bool { return a.MonthlyRentCents > b.MonthlyRentCents })
	}
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

func containsStatus[S comparable](list []S, s S) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *MemPropertyRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Property, error) {
	var out []*models.Property
	for _, id := range ids {
		if p := r.t.get(id.String()); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemPropertyRepository) UpdateIfVersion(_ context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error) {
	if r.t.updateIfVersion(p, expected) == 1 {
		return pgconn.CommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag("UPDATE 0"), nil
}

func (r *MemPropertyRepository) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error {
	get := func(_ context.Context, id string) (*models.Property, error) { return r.t.get(id), nil }
	return repositories.WithRetry(ctx, 3, id.String(), get, r.UpdateIfVersion, mutate)
}

func (r *MemPropertyRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.Property]) (*models.Property, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

func (r *MemPropertyRepository) CountByStatus(_ context.Context) (map[models.PropertyStatus]int, error) {
	out := make(map[models.PropertyStatus]int)
	for _, p := range r.t.list(func(p *models.Property) bool { return p.DeletedAt == nil }) {
		out[p.Status]++
	}
	return out, nil
}

/* ------------------------------------------------------------------
   Applications
------------------------------------------------------------------ */

type MemApplicationRepository struct {
	t          *memTable[*models.Application]
	properties *MemPropertyRepository
}

var _ repositories.ApplicationRepository = (*MemApplicationRepository)(nil)

func NewMemApplicationRepository(audit *MemAuditLogRepository, properties *MemPropertyRepository) *MemApplicationRepository {
	return &MemApplicationRepository{
		t:          newMemTable(func(a *models.Application) *models.Application { cp := *a; return &cp }, audit),
		properties: properties,
	}
}

func (r *MemApplicationRepository) Create(_ context.Context, a *models.Application) error {
	dup := r.t.list(func(x *models.Application) bool {
		return x.TenantID == a.TenantID && x.PropertyID == a.PropertyID && x.IsActive()
	})
	if len(dup) > 0 {
		return repositories.ErrDuplicate
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt, a.RowVersion = now, now, 1
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = now
	}
	r.t.insert(a)
	return nil
}

func (r *MemApplicationRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	return r.t.get(id.String()), nil
}

func (r *MemApplicationRepository) List(_ context.Context, f models.ApplicationFilters) ([]*models.Application, int, error) {
	out := r.t.list(func(a *models.Application) bool {
		if f.TenantID != nil && a.TenantID != *f.TenantID {
			return false
		}
		if f.PropertyID != nil && a.PropertyID != *f.PropertyID {
			return false
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			return false
		}
		if f.OwnerID != nil {
			p := r.properties.t.get(a.PropertyID.String())
			if p == nil || p.OwnerID != *f.OwnerID {
				return false
			}
		}
		return true
	})
	return paginate(out, f.Limit, f.Offset), len(out), nil
}

func (r *MemApplicationRepository) ListActiveByProperty(_ context.Context, propertyID uuid.UUID) ([]*models.Application, error) {
	return r.t.list(func(a *models.Application) bool { return a.PropertyID == propertyID && a.IsActive() }), nil
}

func (r *MemApplicationRepository) ListPaymentExpired(_ context.Context, now time.Time) ([]*models.Application, error) {
	return r.t.list(func(a *models.Application) bool {
		return a.Status == models.ApplicationPaymentPending && a.PaymentDueAt != nil && a.PaymentDueAt.Before(now)
	}), nil
}

func (r *MemApplicationRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.Application]) (*models.Application, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

// MutateWithProperty holds the property table lock and then the application
// table lock, the same order the Postgres repository takes row locks in.
func (r *MemApplicationRepository) MutateWithProperty(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.PairMutateFunc) (*models.Application, *models.Property, error) {
	r.t.mu.Lock()
	cur, ok := r.t.rows[id.String()]
	r.t.mu.Unlock()
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}

	props := r.properties.t
	props.mu.Lock()
	defer props.mu.Unlock()
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	storedProp, ok := props.rows[cur.PropertyID.String()]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	app := r.t.clone(r.t.rows[id.String()])
	prop := props.clone(storedProp)
	if expected != nil && *expected != app.RowVersion {
		return app, prop, utils.ErrRowVersionConflict
	}
	propStatus := prop.Status
	audits, err := fn(app, prop)
	if err != nil {
		return app, prop, err
	}
	app.RowVersion++
	r.t.rows[id.String()] = r.t.clone(app)
	if prop.Status != propStatus {
		prop.RowVersion++
		props.rows[prop.ID.String()] = props.clone(prop)
	}
	for _, entry := range audits {
		if entry != nil && r.t.audit != nil {
			_ = r.t.audit.Create(ctx, entry)
		}
	}
	return app, prop, nil
}

func (r *MemApplicationRepository) CountByStatus(_ context.Context) (map[models.ApplicationStatus]int, error) {
	out := make(map[models.ApplicationStatus]int)
	for _, a := range r.t.list(nil) {
		out[a.Status]++
	}
	return out, nil
}

/* ------------------------------------------------------------------
   Payments + Stripe events
------------------------------------------------------------------ */

type MemPaymentRepository struct {
	t *memTable[*models.Payment]
}

var _ repositories.PaymentRepository = (*MemPaymentRepository)(nil)

func NewMemPaymentRepository(audit *MemAuditLogRepository) *MemPaymentRepository {
	return &MemPaymentRepository{t: newMemTable(func(p *models.Payment) *models.Payment { cp := *p; return &cp }, audit)}
}

// Create enforces the NOT NULL application_id column and the same
// uniqueness rules as the payments indexes.
func (r *MemPaymentRepository) Create(_ context.Context, p *models.Payment) error {
	if p.ApplicationID == nil {
		return &pgconn.PgError{Code: "23502", ColumnName: "application_id", TableName: "payments"}
	}
	dup := r.t.list(func(x *models.Payment) bool {
		switch {
		case x.IdempotencyKey == p.IdempotencyKey:
			return true
		case p.Kind == models.PaymentKindApplication && x.Kind == models.PaymentKindApplication:
			return *x.ApplicationID == *p.ApplicationID && x.Status.Open() && p.Status.Open()
		case p.Kind == models.PaymentKindRent && x.Kind == models.PaymentKindRent:
			return x.LeaseID != nil && p.LeaseID != nil && *x.LeaseID == *p.LeaseID &&
				x.Period != nil && p.Period != nil && *x.Period == *p.Period &&
				x.Status != models.PaymentCanceled && p.Status != models.PaymentCanceled
		}
		return false
	})
	if len(dup) > 0 {
		return repositories.ErrDuplicate
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt, p.RowVersion = now, now, 1
	r.t.insert(p)
	return nil
}

func (r *MemPaymentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.t.get(id.String()), nil
}

func (r *MemPaymentRepository) first(keep func(*models.Payment) bool) *models.Payment {
	if out := r.t.list(keep); len(out) > 0 {
		return out[0]
	}
	return nil
}

func (r *MemPaymentRepository) GetByIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	return r.first(func(p *models.Payment) bool {
		return p.StripePaymentIntentID != nil && *p.StripePaymentIntentID == intentID
	}), nil
}

func (r *MemPaymentRepository) FindOpenForApplication(_ context.Context, applicationID uuid.UUID) (*models.Payment, error) {
	return r.first(func(p *models.Payment) bool {
		return p.Kind == models.PaymentKindApplication && p.ApplicationID != nil &&
			*p.ApplicationID == applicationID && p.Status.Open()
	}), nil
}

func (r *MemPaymentRepository) FindForLeasePeriod(_ context.Context, leaseID uuid.UUID, period string) (*models.Payment, error) {
	return r.first(func(p *models.Payment) bool {
		return p.LeaseID != nil && *p.LeaseID == leaseID && p.Period != nil && *p.Period == period &&
			p.Status != models.PaymentCanceled
	}), nil
}

func (r *MemPaymentRepository) ListByTenant(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, int, error) {
	out := r.t.list(func(p *models.Payment) bool { return p.TenantID == tenantID })
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemPaymentRepository) ListAll(_ context.Context, status models.PaymentStatus, limit, offset int) ([]*models.Payment, int, error) {
	out := r.t.list(func(p *models.Payment) bool { return status == "" || p.Status == status })
	return paginate(out, limit, offset), len(out), nil
}

func (r *MemPaymentRepository) Mutate(ctx context.Context, id uuid.UUID, expected *int64, fn repositories.MutateFunc[*models.Payment]) (*models.Payment, error) {
	return r.t.mutate(ctx, id.String(), expected, fn)
}

func (r *MemPaymentRepository) SumSucceededCents(_ context.Context) (int64, error) {
	var total int64
	for _, p := range r.t.list(func(p *models.Payment) bool { return p.Status == models.PaymentSucceeded }) {
		total += p.AmountCents
	}
	return total, nil
}

type MemStripeEventRepository struct {
	mu     sync.Mutex
	events map[string]string
}

var _ repositories.StripeEventRepository = (*MemStripeEventRepository)(nil)

func (r *MemStripeEventRepository) MarkProcessed(_ context.Context, eventID, eventType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]string)
	}
	if _, ok := r.events[eventID]; ok {
		return false, nil
	}
	r.events[eventID] = eventType
	return true, nil
}

func (r *MemStripeEventRepository) Forget(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, eventID)
	return nil
}
