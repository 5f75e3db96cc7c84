package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type MaintenanceRequestRepository interface {
	Create(ctx context.Context, m *models.MaintenanceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error)
	List(ctx context.Context, f models.MaintenanceFilters) ([]*models.MaintenanceRequest, int, error)
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.MaintenanceRequest]) (*models.MaintenanceRequest, error)
	CountOpen(ctx context.Context) (int, error)
}

type maintenanceRepo struct {
	*BaseVersionedRepo[*models.MaintenanceRequest]
	db DB
}

func NewMaintenanceRequestRepository(db DB) MaintenanceRequestRepository {
	r := &maintenanceRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectMaintenance()+" WHERE id=$1", scanMaintenance)
	return r
}

func (r *maintenanceRepo) Create(ctx context.Context, m *models.MaintenanceRequest) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO maintenance_requests (
            id, property_id, lease_id, tenant_id, title, description, category, priority, status,
            image_urls, triage_summary, created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, NOW(), NOW(), 1)
        RETURNING created_at, updated_at, row_version
    `,
		m.ID, m.PropertyID, m.LeaseID, m.TenantID, m.Title, m.Description, m.Category, m.Priority, m.Status,
		nonNil(m.ImageURLs), m.TriageSummary,
	).Scan(&m.CreatedAt, &m.UpdatedAt, &m.RowVersion)
}

func (r *maintenanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceRequest, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *maintenanceRepo) List(ctx context.Context, f models.MaintenanceFilters) ([]*models.MaintenanceRequest, int, error) {
	var w whereBuilder
	if f.TenantID != nil {
		w.add("tenant_id=?", *f.TenantID)
	}
	if f.OwnerID != nil {
		w.add("property_id IN (SELECT id FROM properties WHERE owner_id=?)", *f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", toStrings(f.Statuses))
	}
	if f.Priority != "" {
		w.add("priority=?", f.Priority)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM maintenance_requests"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, baseSelectMaintenance()+w.sql()+`
        ORDER BY CASE priority WHEN 'emergency' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
                 created_at DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanMaintenance)
	return out, total, err
}

func (r *maintenanceRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.MaintenanceRequest]) (*models.MaintenanceRequest, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, updateMaintenance)
}

func updateMaintenance(ctx context.Context, q DB, m *models.MaintenanceRequest, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE maintenance_requests SET
            title=$1, description=$2, category=$3, priority=$4, status=$5,
            owner_notes=$6, image_urls=$7, triage_summary=$8, resolved_at=$9,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$10 AND row_version=$11
    `,
		m.Title, m.Description, m.Category, m.Priority, m.Status,
		m.OwnerNotes, nonNil(m.ImageURLs), m.TriageSummary, m.ResolvedAt,
		m.ID, expected,
	)
}

func (r *maintenanceRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_requests WHERE status IN ('open','in_progress')`).Scan(&n)
	return n, err
}

func baseSelectMaintenance() string {
	return `
        SELECT
            id, property_id, lease_id, tenant_id, title, description, category, priority, status,
            owner_notes, image_urls, triage_summary, resolved_at, created_at, updated_at, row_version
        FROM maintenance_requests
    `
}

func scanMaintenance(row pgx.Row) (*models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	err := row.Scan(
		&m.ID,
		&m.PropertyID,
		&m.LeaseID,
		&m.TenantID,
		&m.Title,
		&m.Description,
		&m.Category,
		&m.Priority,
		&m.Status,
		&m.OwnerNotes,
		&m.ImageURLs,
		&m.TriageSummary,
		&m.ResolvedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
