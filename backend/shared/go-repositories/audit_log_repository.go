// backend/shared/go-repositories/audit_log_repository.go
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type AuditLogRepository interface {
	Create(ctx context.Context, logEntry *models.AuditLog) error
	ListByTarget(ctx context.Context, targetType models.AuditTargetType, targetID uuid.UUID) ([]*models.AuditLog, error)
	List(ctx context.Context, targetType models.AuditTargetType, limit, offset int) ([]*models.AuditLog, int, error)
}

type auditLogRepo struct {
	db DB
}

func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, logEntry *models.AuditLog) error {
	return insertAuditLog(ctx, r.db, logEntry)
}

// insertAuditLog is shared with MutateLocked so audit rows land in the
// caller's transaction.
func insertAuditLog(ctx context.Context, q DB, logEntry *models.AuditLog) error {
	if logEntry.ID == uuid.Nil {
		logEntry.ID = uuid.New()
	}
	if logEntry.CreatedAt.IsZero() {
		logEntry.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `
        INSERT INTO audit_logs (
            id, actor_id, actor_role, action, target_id, target_type, details, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `,
		logEntry.ID,
		logEntry.ActorID,
		logEntry.ActorRole,
		logEntry.Action,
		logEntry.TargetID,
		logEntry.TargetType,
		logEntry.Details,
		logEntry.CreatedAt,
	)
	return err
}

func (r *auditLogRepo) ListByTarget(ctx context.Context, targetType models.AuditTargetType, targetID uuid.UUID) ([]*models.AuditLog, error) {
	rows, err := r.db.Query(ctx, baseSelectAuditLog()+`
        WHERE target_type=$1 AND target_id=$2
        ORDER BY created_at ASC, id ASC
    `, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAuditLog)
}

func (r *auditLogRepo) List(ctx context.Context, targetType models.AuditTargetType, limit, offset int) ([]*models.AuditLog, int, error) {
	var w whereBuilder
	if targetType != "" {
		w.add("target_type=?", targetType)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := w.page(limit, offset)
	rows, err := r.db.Query(ctx, baseSelectAuditLog()+w.sql()+" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanAuditLog)
	return out, total, err
}

func baseSelectAuditLog() string {
	return `
        SELECT id, actor_id, actor_role, action, target_id, target_type, details, created_at
        FROM audit_logs
    `
}

func scanAuditLog(row pgx.Row) (*models.AuditLog, error) {
	var l models.AuditLog
	if err := row.Scan(
		&l.ID,
		&l.ActorID,
		&l.ActorRole,
		&l.Action,
		&l.TargetID,
		&l.TargetType,
		&l.Details,
		&l.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
