package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type ErrorLogRepository interface {
	Create(ctx context.Context, e *models.ErrorLog) error
	List(ctx context.Context, source models.ErrorSource, limit, offset int) ([]*models.ErrorLog, int, error)
	// DeleteOlderThan prunes entries created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type errorLogRepo struct {
	db DB
}

func NewErrorLogRepository(db DB) ErrorLogRepository {
	return &errorLogRepo{db: db}
}

func (r *errorLogRepo) Create(ctx context.Context, e *models.ErrorLog) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.db.QueryRow(ctx, `
        INSERT INTO error_logs (id, user_id, source, message, stack, path, user_agent, context, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8, NOW())
        RETURNING created_at
    `, e.ID, e.UserID, e.Source, e.Message, e.Stack, e.Path, e.UserAgent, e.Context).Scan(&e.CreatedAt)
}

func (r *errorLogRepo) List(ctx context.Context, source models.ErrorSource, limit, offset int) ([]*models.ErrorLog, int, error) {
	var w whereBuilder
	if source != "" {
		w.add("source=?", source)
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM error_logs"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	suffix, args := w.page(limit, offset)
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, source, message, stack, path, user_agent, context, created_at
        FROM error_logs`+w.sql()+" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, func(row pgx.Row) (*models.ErrorLog, error) {
		var e models.ErrorLog
		err := row.Scan(&e.ID, &e.UserID, &e.Source, &e.Message, &e.Stack, &e.Path, &e.UserAgent, &e.Context, &e.CreatedAt)
		return &e, err
	})
	return out, total, err
}

func (r *errorLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM error_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
