package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type InquiryRepository interface {
	Create(ctx context.Context, i *models.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	// List filters by owning user of the inquired property when ownerID is set.
	List(ctx context.Context, ownerID *uuid.UUID, status models.InquiryStatus, limit, offset int) ([]*models.Inquiry, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) error
	// CountRecentFromEmail supports duplicate suppression.
	CountRecentFromEmail(ctx context.Context, email string, since time.Time) (int, error)
}

type inquiryRepo struct {
	db DB
}

func NewInquiryRepository(db DB) InquiryRepository {
	return &inquiryRepo{db: db}
}

func (r *inquiryRepo) Create(ctx context.Context, i *models.Inquiry) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO inquiries (id, property_id, user_id, name, email, phone, message, status, client_ip, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, NOW(), NOW())
        RETURNING created_at, updated_at
    `,
		i.ID, i.PropertyID, i.UserID, i.Name, i.Email, i.Phone, i.Message, i.Status, i.ClientIP,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *inquiryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	i, err := scanInquiry(r.db.QueryRow(ctx, baseSelectInquiry()+" WHERE id=$1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return i, err
}

func (r *inquiryRepo) List(ctx context.Context, ownerID *uuid.UUID, status models.InquiryStatus, limit, offset int) ([]*models.Inquiry, int, error) {
	var w whereBuilder
	if ownerID != nil {
		w.add("property_id IN (SELECT id FROM properties WHERE owner_id=?)", *ownerID)
	}
	if status != "" {
		w.add("status=?", status)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM inquiries"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(limit, offset)
	rows, err := r.db.Query(ctx, baseSelectInquiry()+w.sql()+" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanInquiry)
	return out, total, err
}

func (r *inquiryRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE inquiries SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *inquiryRepo) CountRecentFromEmail(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM inquiries WHERE lower(email)=lower($1) AND created_at >= $2`,
		email, since,
	).Scan(&n)
	return n, err
}

func baseSelectInquiry() string {
	return `
        SELECT id, property_id, user_id, name, email, phone, message, status, client_ip, created_at, updated_at
        FROM inquiries
    `
}

func scanInquiry(row pgx.Row) (*models.Inquiry, error) {
	var i models.Inquiry
	err := row.Scan(&i.ID, &i.PropertyID, &i.UserID, &i.Name, &i.Email, &i.Phone, &i.Message,
		&i.Status, &i.ClientIP, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
