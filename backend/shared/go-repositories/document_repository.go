package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type DocumentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Document, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*models.Document, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, sizeBytes int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentRepo struct {
	db DB
}

func NewDocumentRepository(db DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, d *models.Document) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO documents (
            id, user_id, application_id, lease_id, kind, file_name, content_type,
            size_bytes, storage_path, status, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())
        RETURNING created_at
    `,
		d.ID, d.UserID, d.ApplicationID, d.LeaseID, d.Kind, d.FileName, d.ContentType,
		d.SizeBytes, d.StoragePath, d.Status,
	).Scan(&d.CreatedAt)
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, baseSelectDocument()+" WHERE id=$1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func (r *documentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Document, error) {
	rows, err := r.db.Query(ctx, baseSelectDocument()+" WHERE user_id=$1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDocument)
}

func (r *documentRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*models.Document, error) {
	rows, err := r.db.Query(ctx, baseSelectDocument()+" WHERE application_id=$1 ORDER BY created_at", applicationID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDocument)
}

func (r *documentRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, sizeBytes int64) error {
	_, err := r.db.Exec(ctx, `UPDATE documents SET status=$1, size_bytes=$2 WHERE id=$3`, status, sizeBytes, id)
	return err
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	return err
}

func baseSelectDocument() string {
	return `
        SELECT id, user_id, application_id, lease_id, kind, file_name, content_type,
               size_bytes, storage_path, status, created_at
        FROM documents
    `
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.UserID, &d.ApplicationID, &d.LeaseID, &d.Kind, &d.FileName,
		&d.ContentType, &d.SizeBytes, &d.StoragePath, &d.Status, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
