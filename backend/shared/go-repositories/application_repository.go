package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// ActiveApplicationConstraint is the partial unique index allowing one
// non-terminal application per tenant and property.
const ActiveApplicationConstraint = "applications_one_active_per_tenant"

type ApplicationRepository interface {
	// Create returns ErrDuplicate when the tenant already has an active
	// application for the property.
	Create(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	List(ctx context.Context, f models.ApplicationFilters) ([]*models.Application, int, error)
	ListActiveByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Application, error)
	ListPaymentExpired(ctx context.Context, now time.Time) ([]*models.Application, error)
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Application]) (*models.Application, error)
	// MutateWithProperty locks the application's property and then the
	// application in one transaction, so decisions that depend on the
	// listing serialize per property.
	MutateWithProperty(ctx context.Context, id uuid.UUID, expected *int64, mutate PairMutateFunc) (*models.Application, *models.Property, error)
	CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int, error)
}

type applicationRepo struct {
	*BaseVersionedRepo[*models.Application]
	db     DB
	encKey []byte
}

// NewApplicationRepository encrypts SSN digits at rest with encKey (32 bytes).
func NewApplicationRepository(db DB, encKey []byte) ApplicationRepository {
	r := &applicationRepo{db: db, encKey: encKey}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectApplication()+" WHERE id=$1", r.scan)
	return r
}

func (r *applicationRepo) Create(ctx context.Context, a *models.Application) error {
	ssn, err := r.encrypt(a.SSNLast4)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
        INSERT INTO applications (
            id, property_id, tenant_id, status, full_name, email, phone, employer, job_title,
            monthly_income_cents, move_in_date, occupants, has_pets, pet_details, notes,
            ssn_last4_encrypted, submitted_at, created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17, NOW(), NOW(), 1)
        RETURNING created_at, updated_at, row_version
    `,
		a.ID, a.PropertyID, a.TenantID, a.Status, a.FullName, a.Email, a.Phone, a.Employer, a.JobTitle,
		a.MonthlyIncomeCents, a.MoveInDate, a.Occupants, a.HasPets, a.PetDetails, a.Notes,
		ssn, a.SubmittedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt, &a.RowVersion)
	if IsUniqueViolation(err, ActiveApplicationConstraint) {
		return ErrDuplicate
	}
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *applicationRepo) List(ctx context.Context, f models.ApplicationFilters) ([]*models.Application, int, error) {
	var w whereBuilder
	if f.TenantID != nil {
		w.add("tenant_id=?", *f.TenantID)
	}
	if f.OwnerID != nil {
		w.add("property_id IN (SELECT id FROM properties WHERE owner_id=?)", *f.OwnerID)
	}
	if f.PropertyID != nil {
		w.add("property_id=?", *f.PropertyID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", toStrings(f.Statuses))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM applications"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, baseSelectApplication()+w.sql()+" ORDER BY submitted_at DESC, id"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, r.scan)
	return out, total, err
}

func (r *applicationRepo) ListActiveByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Application, error) {
	rows, err := r.db.Query(ctx, baseSelectApplication()+`
        WHERE property_id=$1 AND status = ANY($2)
        ORDER BY submitted_at
    `, propertyID, toStrings(models.ActiveApplicationStatuses))
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scan)
}

func (r *applicationRepo) ListPaymentExpired(ctx context.Context, now time.Time) ([]*models.Application, error) {
	rows, err := r.db.Query(ctx, baseSelectApplication()+`
        WHERE status=$1 AND payment_due_at IS NOT NULL AND payment_due_at < $2
        ORDER BY payment_due_at
    `, models.ApplicationPaymentPending, now)
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scan)
}

func (r *applicationRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Application]) (*models.Application, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, r.update)
}

// PairMutateFunc changes a locked application and its locked property. The
// property is written only when its status changed.
type PairMutateFunc func(a *models.Application, p *models.Property) ([]*models.AuditLog, error)

func (r *applicationRepo) MutateWithProperty(ctx context.Context, id uuid.UUID, expected *int64, mutate PairMutateFunc) (*models.Application, *models.Property, error) {
	var app *models.Application
	var prop *models.Property
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var propertyID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT property_id FROM applications WHERE id=$1`, id).Scan(&propertyID); err != nil {
			return err
		}
		p, err := scanProperty(tx.QueryRow(ctx, baseSelectProperty()+" WHERE id=$1 FOR UPDATE", propertyID))
		if err != nil {
			return err
		}
		a, err := r.scan(tx.QueryRow(ctx, baseSelectApplication()+" WHERE id=$1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		if p == nil || a == nil {
			return pgx.ErrNoRows
		}
		app, prop = a, p
		if expected != nil && *expected != a.RowVersion {
			return utils.ErrRowVersionConflict
		}

		appVersion, propVersion, propStatus := a.RowVersion, p.RowVersion, p.Status
		audits, err := mutate(a, p)
		if err != nil {
			return err
		}
		tag, err := r.update(ctx, tx, a, appVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return utils.ErrNoRowsUpdated
		}
		a.RowVersion = appVersion + 1

		if p.Status != propStatus {
			tag, err := updateProperty(ctx, tx, p, propVersion)
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return utils.ErrNoRowsUpdated
			}
			p.RowVersion = propVersion + 1
		}
		for _, entry := range audits {
			if entry == nil {
				continue
			}
			if err := insertAuditLog(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	return app, prop, err
}

func (r *applicationRepo) update(ctx context.Context, q DB, a *models.Application, expected int64) (pgconn.CommandTag, error) {
	ssn, err := r.encrypt(a.SSNLast4)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return q.Exec(ctx, `
        UPDATE applications SET
            status=$1, full_name=$2, email=$3, phone=$4, employer=$5, job_title=$6,
            monthly_income_cents=$7, move_in_date=$8, occupants=$9, has_pets=$10, pet_details=$11,
            notes=$12, ssn_last4_encrypted=$13, reviewer_id=$14, decision_reason=$15,
            payment_due_at=$16, decided_at=$17,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$18 AND row_version=$19
    `,
		a.Status, a.FullName, a.Email, a.Phone, a.Employer, a.JobTitle,
		a.MonthlyIncomeCents, a.MoveInDate, a.Occupants, a.HasPets, a.PetDetails,
		a.Notes, ssn, a.ReviewerID, a.DecisionReason,
		a.PaymentDueAt, a.DecidedAt,
		a.ID, expected,
	)
}

func (r *applicationRepo) CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.ApplicationStatus]int)
	for rows.Next() {
		var s models.ApplicationStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *applicationRepo) encrypt(plain *string) (*string, error) {
	if plain == nil {
		return nil, nil
	}
	enc, err := utils.Encrypt(r.encKey, *plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt ssn_last4: %w", err)
	}
	return &enc, nil
}

func baseSelectApplication() string {
	return `
        SELECT
            id, property_id, tenant_id, status, full_name, email, phone, employer, job_title,
            monthly_income_cents, move_in_date, occupants, has_pets, pet_details, notes,
            ssn_last4_encrypted, reviewer_id, decision_reason, payment_due_at,
            submitted_at, decided_at, created_at, updated_at, row_version
        FROM applications
    `
}

func (r *applicationRepo) scan(row pgx.Row) (*models.Application, error) {
	var a models.Application
	var ssnEnc *string
	err := row.Scan(
		&a.ID,
		&a.PropertyID,
		&a.TenantID,
		&a.Status,
		&a.FullName,
		&a.Email,
		&a.Phone,
		&a.Employer,
		&a.JobTitle,
		&a.MonthlyIncomeCents,
		&a.MoveInDate,
		&a.Occupants,
		&a.HasPets,
		&a.PetDetails,
		&a.Notes,
		&ssnEnc,
		&a.ReviewerID,
		&a.DecisionReason,
		&a.PaymentDueAt,
		&a.SubmittedAt,
		&a.DecidedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if ssnEnc != nil {
		plain, err := utils.Decrypt(r.encKey, *ssnEnc)
		if err != nil {
			return nil, fmt.Errorf("decrypt ssn_last4 for application %s: %w", a.ID, err)
		}
		a.SSNLast4 = &plain
	}
	return &a, nil
}
