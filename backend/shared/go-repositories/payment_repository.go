package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// Partial unique indexes that keep at most one live payment per item.
const (
	OpenApplicationPaymentConstraint = "payments_one_open_per_application"
	LeasePeriodPaymentConstraint     = "payments_one_per_lease_period"
)

type PaymentRepository interface {
	// Create returns ErrDuplicate when the application already has an open
	// payment or the lease period already has a live one.
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	// FindOpenForApplication returns the newest payment that can still be
	// completed, or nil.
	FindOpenForApplication(ctx context.Context, applicationID uuid.UUID) (*models.Payment, error)
	FindForLeasePeriod(ctx context.Context, leaseID uuid.UUID, period string) (*models.Payment, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, int, error)
	ListAll(ctx context.Context, status models.PaymentStatus, limit, offset int) ([]*models.Payment, int, error)
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Payment]) (*models.Payment, error)
	SumSucceededCents(ctx context.Context) (int64, error)
}

type paymentRepo struct {
	*BaseVersionedRepo[*models.Payment]
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	r := &paymentRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectPayment()+" WHERE id=$1", scanPayment)
	return r
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO payments (
            id, application_id, lease_id, tenant_id, kind, period, amount_cents, currency, status,
            stripe_payment_intent_id, idempotency_key, created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, NOW(), NOW(), 1)
        RETURNING created_at, updated_at, row_version
    `,
		p.ID, p.ApplicationID, p.LeaseID, p.TenantID, p.Kind, p.Period, p.AmountCents, p.Currency, p.Status,
		p.StripePaymentIntentID, p.IdempotencyKey,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.RowVersion)
	if IsUniqueViolation(err, OpenApplicationPaymentConstraint) ||
		IsUniqueViolation(err, LeasePeriodPaymentConstraint) ||
		IsUniqueViolation(err, "payments_idempotency_key_key") {
		return ErrDuplicate
	}
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *paymentRepo) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+" WHERE stripe_payment_intent_id=$1", intentID))
}

func (r *paymentRepo) FindOpenForApplication(ctx context.Context, applicationID uuid.UUID) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+`
        WHERE application_id=$1 AND kind='application'
          AND status IN ('requires_payment','processing','failed')
        ORDER BY created_at DESC LIMIT 1
    `, applicationID))
}

func (r *paymentRepo) FindForLeasePeriod(ctx context.Context, leaseID uuid.UUID, period string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+`
        WHERE lease_id=$1 AND period=$2 AND status <> 'canceled'
        ORDER BY created_at DESC LIMIT 1
    `, leaseID, period))
}

func (r *paymentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, int, error) {
	var w whereBuilder
	w.add("tenant_id=?", tenantID)
	return r.list(ctx, w, limit, offset)
}

func (r *paymentRepo) ListAll(ctx context.Context, status models.PaymentStatus, limit, offset int) ([]*models.Payment, int, error) {
	var w whereBuilder
	if status != "" {
		w.add("status=?", status)
	}
	return r.list(ctx, w, limit, offset)
}

func (r *paymentRepo) list(ctx context.Context, w whereBuilder, limit, offset int) ([]*models.Payment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM payments"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(limit, offset)
	rows, err := r.db.Query(ctx, baseSelectPayment()+w.sql()+" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanPayment)
	return out, total, err
}

func (r *paymentRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Payment]) (*models.Payment, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, updatePayment)
}

func updatePayment(ctx context.Context, q DB, p *models.Payment, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE payments SET
            status=$1, stripe_payment_intent_id=$2, failure_reason=$3, paid_at=$4, stripe_refund_id=$5,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$6 AND row_version=$7
    `, p.Status, p.StripePaymentIntentID, p.FailureReason, p.PaidAt, p.StripeRefundID, p.ID, expected)
}

func (r *paymentRepo) SumSucceededCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status='succeeded'`).Scan(&total)
	return total, err
}

func baseSelectPayment() string {
	return `
        SELECT
            id, application_id, lease_id, tenant_id, kind, period, amount_cents, currency, status,
            stripe_payment_intent_id, idempotency_key, failure_reason, stripe_refund_id, paid_at,
            created_at, updated_at, row_version
        FROM payments
    `
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.ApplicationID,
		&p.LeaseID,
		&p.TenantID,
		&p.Kind,
		&p.Period,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.StripePaymentIntentID,
		&p.IdempotencyKey,
		&p.FailureReason,
		&p.StripeRefundID,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
