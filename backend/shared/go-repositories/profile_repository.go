package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type ProfileRepository interface {
	// EnsureExists inserts the profile if the id is new and returns the stored row.
	EnsureExists(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.Profile, error)
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Profile]) (*models.Profile, error)
}

type profileRepo struct {
	*BaseVersionedRepo[*models.Profile]
	db DB
}

func NewProfileRepository(db DB) ProfileRepository {
	r := &profileRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectProfile()+" WHERE id=$1", scanProfile)
	return r
}

func (r *profileRepo) EnsureExists(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	_, err := r.db.Exec(ctx, `
        INSERT INTO profiles (id, email, full_name, phone, avatar_url, role, created_at, updated_at, row_version)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
        ON CONFLICT (id) DO NOTHING
    `, p.ID, p.Email, p.FullName, p.Phone, p.AvatarURL, p.Role)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, p.ID)
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *profileRepo) ListByRole(ctx context.Context, role models.UserRole) ([]*models.Profile, error) {
	rows, err := r.db.Query(ctx, baseSelectProfile()+" WHERE role=$1 ORDER BY created_at", role)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProfile)
}

func (r *profileRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Profile]) (*models.Profile, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, updateProfile)
}

func updateProfile(ctx context.Context, q DB, p *models.Profile, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE profiles SET
            email=$1, full_name=$2, phone=$3, avatar_url=$4, role=$5,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$6 AND row_version=$7
    `, p.Email, p.FullName, p.Phone, p.AvatarURL, p.Role, p.ID, expected)
}

func baseSelectProfile() string {
	return `
        SELECT id, email, full_name, phone, avatar_url, role, created_at, updated_at, row_version
        FROM profiles
    `
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Phone,
		&p.AvatarURL,
		&p.Role,
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
