package repositories

import (
	"context"

	"github.com/google/uuid"
)

type SavedPropertyRepository interface {
	// Save is idempotent; it reports whether a new row was written.
	Save(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error)
	Remove(ctx context.Context, tenantID, propertyID uuid.UUID) error
	// ListPropertyIDs returns saved property ids, newest first.
	ListPropertyIDs(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]uuid.UUID, int, error)
	IsSaved(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error)
}

type savedPropertyRepo struct {
	db DB
}

func NewSavedPropertyRepository(db DB) SavedPropertyRepository {
	return &savedPropertyRepo{db: db}
}

func (r *savedPropertyRepo) Save(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO saved_properties (tenant_id, property_id, created_at)
        VALUES ($1,$2, NOW())
        ON CONFLICT (tenant_id, property_id) DO NOTHING
    `, tenantID, propertyID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *savedPropertyRepo) Remove(ctx context.Context, tenantID, propertyID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM saved_properties WHERE tenant_id=$1 AND property_id=$2`, tenantID, propertyID)
	return err
}

func (r *savedPropertyRepo) ListPropertyIDs(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]uuid.UUID, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM saved_properties WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
        SELECT property_id FROM saved_properties
        WHERE tenant_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	return ids, total, rows.Err()
}

func (r *savedPropertyRepo) IsSaved(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_properties WHERE tenant_id=$1 AND property_id=$2)`,
		tenantID, propertyID,
	).Scan(&ok)
	return ok, err
}
