package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type LeaseRepository interface {
	// Create returns ErrDuplicate when the application already has a lease.
	Create(ctx context.Context, l *models.Lease) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error)
	GetByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.Lease, error)
	// ListForUser returns leases where the user is tenant or owner.
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Lease, int, error)
	// ListActive returns fully signed leases covering day.
	ListActive(ctx context.Context, day time.Time) ([]*models.Lease, error)
	FindActiveForTenantProperty(ctx context.Context, tenantID, propertyID uuid.UUID, day time.Time) (*models.Lease, error)
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Lease]) (*models.Lease, error)
}

type leaseRepo struct {
	*BaseVersionedRepo[*models.Lease]
	db DB
}

func NewLeaseRepository(db DB) LeaseRepository {
	r := &leaseRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectLease()+" WHERE id=$1", scanLease)
	return r
}

func (r *leaseRepo) Create(ctx context.Context, l *models.Lease) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO leases (
            id, application_id, property_id, tenant_id, owner_id, status, start_date, end_date,
            monthly_rent_cents, security_deposit_cents, rent_due_day, body, content_hash,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13, NOW(), NOW(), 1)
        RETURNING created_at, updated_at, row_version
    `,
		l.ID, l.ApplicationID, l.PropertyID, l.TenantID, l.OwnerID, l.Status, l.StartDate, l.EndDate,
		l.MonthlyRentCents, l.SecurityDepositCents, l.RentDueDay, l.Body, l.ContentHash,
	).Scan(&l.CreatedAt, &l.UpdatedAt, &l.RowVersion)
	if IsUniqueViolation(err, "leases_application_id_key") {
		return ErrDuplicate
	}
	return err
}

func (r *leaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *leaseRepo) GetByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.Lease, error) {
	return scanLease(r.db.QueryRow(ctx, baseSelectLease()+" WHERE application_id=$1", applicationID))
}

func (r *leaseRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Lease, int, error) {
	var w whereBuilder
	w.add("(tenant_id=? OR owner_id=?)", userID, userID)

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM leases"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(limit, offset)
	rows, err := r.db.Query(ctx, baseSelectLease()+w.sql()+" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanLease)
	return out, total, err
}

func (r *leaseRepo) ListActive(ctx context.Context, day time.Time) ([]*models.Lease, error) {
	rows, err := r.db.Query(ctx, baseSelectLease()+`
        WHERE status='fully_signed' AND start_date <= $1 AND end_date >= $1
        ORDER BY end_date
    `, day)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLease)
}

func (r *leaseRepo) FindActiveForTenantProperty(ctx context.Context, tenantID, propertyID uuid.UUID, day time.Time) (*models.Lease, error) {
	return scanLease(r.db.QueryRow(ctx, baseSelectLease()+`
        WHERE tenant_id=$1 AND property_id=$2 AND status='fully_signed'
          AND start_date <= $3 AND end_date >= $3
        ORDER BY start_date DESC LIMIT 1
    `, tenantID, propertyID, day))
}

func (r *leaseRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Lease]) (*models.Lease, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, updateLease)
}

func updateLease(ctx context.Context, q DB, l *models.Lease, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE leases SET
            status=$1, body=$2, content_hash=$3,
            tenant_signature=$4, tenant_signed_at=$5, tenant_signed_ip=$6,
            owner_signature=$7, owner_signed_at=$8, owner_signed_ip=$9,
            void_reason=$10,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$11 AND row_version=$12
    `,
		l.Status, l.Body, l.ContentHash,
		l.TenantSignature, l.TenantSignedAt, l.TenantSignedIP,
		l.OwnerSignature, l.OwnerSignedAt, l.OwnerSignedIP,
		l.VoidReason,
		l.ID, expected,
	)
}

func baseSelectLease() string {
	return `
        SELECT
            id, application_id, property_id, tenant_id, owner_id, status, start_date, end_date,
            monthly_rent_cents, security_deposit_cents, rent_due_day, body, content_hash,
            tenant_signature, tenant_signed_at, tenant_signed_ip,
            owner_signature, owner_signed_at, owner_signed_ip,
            void_reason, created_at, updated_at, row_version
        FROM leases
    `
}

func scanLease(row pgx.Row) (*models.Lease, error) {
	var l models.Lease
	err := row.Scan(
		&l.ID,
		&l.ApplicationID,
		&l.PropertyID,
		&l.TenantID,
		&l.OwnerID,
		&l.Status,
		&l.StartDate,
		&l.EndDate,
		&l.MonthlyRentCents,
		&l.SecurityDepositCents,
		&l.RentDueDay,
		&l.Body,
		&l.ContentHash,
		&l.TenantSignature,
		&l.TenantSignedAt,
		&l.TenantSignedIP,
		&l.OwnerSignature,
		&l.OwnerSignedAt,
		&l.OwnerSignedIP,
		&l.VoidReason,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
