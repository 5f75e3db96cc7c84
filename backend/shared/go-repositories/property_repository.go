package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

/* ------------------------------------------------------------------
   Public interface
------------------------------------------------------------------ */

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Search(ctx context.Context, f models.PropertyFilters) ([]*models.Property, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Property, error)

	UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error
	Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Property]) (*models.Property, error)

	CountByStatus(ctx context.Context) (map[models.PropertyStatus]int, error)
}

/* ------------------------------------------------------------------
   Implementation
------------------------------------------------------------------ */

type propertyRepo struct {
	*BaseVersionedRepo[*models.Property]
	db DB
}

func NewPropertyRepository(db DB) PropertyRepository {
	r := &propertyRepo{db: db}
	selectStmt := baseSelectProperty() + " WHERE id=$1"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, scanProperty)
	return r
}

func (r *propertyRepo) Create(ctx context.Context, p *models.Property) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO properties (
            id, owner_id, title, description, address, city, state, zip_code,
            latitude, longitude, time_zone, property_type, bedrooms, bathrooms, square_feet,
            monthly_rent_cents, security_deposit_cents, application_fee_cents,
            available_from, pets_allowed, amenities, image_urls, status,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,
            NOW(), NOW(), 1)
        RETURNING created_at, updated_at, row_version
    `,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Description,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Latitude,
		p.Longitude,
		p.TimeZone,
		p.PropertyType,
		p.Bedrooms,
		p.Bathrooms,
		p.SquareFeet,
		p.MonthlyRentCents,
		p.SecurityDepositCents,
		p.ApplicationFeeCents,
		p.AvailableFrom,
		p.PetsAllowed,
		nonNil(p.Amenities),
		nonNil(p.ImageURLs),
		p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.RowVersion)
	return err
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *propertyRepo) Search(ctx context.Context, f models.PropertyFilters) ([]*models.Property, int, error) {
	var w whereBuilder
	w.add("deleted_at IS NULL")
	if f.OwnerID != nil {
		w.add("owner_id=?", *f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", toStrings(f.Statuses))
	}
	if f.City != "" {
		w.add("city ILIKE ?", f.City)
	}
	if f.State != "" {
		w.add("state=?", f.State)
	}
	if f.PropertyType != "" {
		w.add("property_type=?", f.PropertyType)
	}
	if f.MinRentCents > 0 {
		w.add("monthly_rent_cents >= ?", f.MinRentCents)
	}
	if f.MaxRentCents > 0 {
		w.add("monthly_rent_cents <= ?", f.MaxRentCents)
	}
	if f.MinBedrooms > 0 {
		w.add("bedrooms >= ?", f.MinBedrooms)
	}
	if f.MinBathrooms > 0 {
		w.add("bathrooms >= ?", f.MinBathrooms)
	}
	if f.PetsAllowed != nil {
		w.add("pets_allowed=?", *f.PetsAllowed)
	}
	if f.Query != "" {
		w.add("(title ILIKE ? OR description ILIKE ?)", "%"+f.Query+"%", "%"+f.Query+"%")
	}
	if b := f.Bounds; b != nil {
		w.add("latitude BETWEEN ? AND ?", b.MinLat, b.MaxLat)
		w.add("longitude BETWEEN ? AND ?", b.MinLng, b.MaxLng)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM properties"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, baseSelectProperty()+w.sql()+propertyOrder(f.Sort)+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanProperty)
	return out, total, err
}

// propertyOrder maps public sort keys to ORDER BY clauses. Unknown keys use newest.
func propertyOrder(sort string) string {
	switch sort {
	case "rent_asc":
		return " ORDER BY monthly_rent_cents ASC, id"
	case "rent_desc":
		return " ORDER BY monthly_rent_cents DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func (r *propertyRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, baseSelectProperty()+" WHERE id = ANY($1::uuid[])", uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProperty)
}

func (r *propertyRepo) UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error) {
	return updateProperty(ctx, r.db, p, expected)
}

func (r *propertyRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *propertyRepo) Mutate(ctx context.Context, id uuid.UUID, expected *int64, mutate MutateFunc[*models.Property]) (*models.Property, error) {
	return r.BaseVersionedRepo.Mutate(ctx, id.String(), expected, mutate, updateProperty)
}

func updateProperty(ctx context.Context, q DB, p *models.Property, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE properties SET
            title=$1, description=$2, address=$3, city=$4, state=$5, zip_code=$6,
            latitude=$7, longitude=$8, time_zone=$9, property_type=$10, bedrooms=$11,
            bathrooms=$12, square_feet=$13, monthly_rent_cents=$14, security_deposit_cents=$15,
            application_fee_cents=$16, available_from=$17, pets_allowed=$18, amenities=$19,
            image_urls=$20, status=$21, deleted_at=$22,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$23 AND row_version=$24
    `,
		p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode,
		p.Latitude, p.Longitude, p.TimeZone, p.PropertyType, p.Bedrooms,
		p.Bathrooms, p.SquareFeet, p.MonthlyRentCents, p.SecurityDepositCents,
		p.ApplicationFeeCents, p.AvailableFrom, p.PetsAllowed, nonNil(p.Amenities),
		nonNil(p.ImageURLs), p.Status, p.DeletedAt,
		p.ID, expected,
	)
}

func (r *propertyRepo) CountByStatus(ctx context.Context) (map[models.PropertyStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM properties WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.PropertyStatus]int)
	for rows.Next() {
		var s models.PropertyStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func baseSelectProperty() string {
	return `
        SELECT
            id, owner_id, title, description,
            address, city, state, zip_code,
            latitude, longitude, time_zone,
            property_type, bedrooms, bathrooms, square_feet,
            monthly_rent_cents, security_deposit_cents, application_fee_cents,
            available_from, pets_allowed, amenities, image_urls, status,
            created_at, updated_at, deleted_at, row_version
        FROM properties
    `
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.City,
		&p.State,
		&p.ZipCode,
		&p.Latitude,
		&p.Longitude,
		&p.TimeZone,
		&p.PropertyType,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.SquareFeet,
		&p.MonthlyRentCents,
		&p.SecurityDepositCents,
		&p.ApplicationFeeCents,
		&p.AvailableFrom,
		&p.PetsAllowed,
		&p.Amenities,
		&p.ImageURLs,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
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
