package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type MessageRepository interface {
	// GetOrCreateThread returns the single thread for (tenant, property).
	GetOrCreateThread(ctx context.Context, t *models.Thread) (*models.Thread, error)
	GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error)
	// ListThreads fills UnreadCount for userID.
	ListThreads(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Thread, int, error)
	// CreateMessage inserts m and bumps the thread's last_message_at.
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*models.Message, int, error)
	// MarkRead stamps read_at on messages in the thread not sent by readerID.
	MarkRead(ctx context.Context, threadID, readerID uuid.UUID, at time.Time) (int64, error)
}

type messageRepo struct {
	db DB
}

func NewMessageRepository(db DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) GetOrCreateThread(ctx context.Context, t *models.Thread) (*models.Thread, error) {
	_, err := r.db.Exec(ctx, `
        INSERT INTO message_threads (id, property_id, tenant_id, owner_id, subject, last_message_at, created_at)
        VALUES ($1,$2,$3,$4,$5, NOW(), NOW())
        ON CONFLICT (tenant_id, property_id) DO NOTHING
    `, t.ID, t.PropertyID, t.TenantID, t.OwnerID, t.Subject)
	if err != nil {
		return nil, err
	}
	return scanThread(r.db.QueryRow(ctx, baseSelectThread()+" WHERE tenant_id=$1 AND property_id=$2", t.TenantID, t.PropertyID))
}

func (r *messageRepo) GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	return scanThread(r.db.QueryRow(ctx, baseSelectThread()+" WHERE id=$1", id))
}

func (r *messageRepo) ListThreads(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Thread, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_threads WHERE tenant_id=$1 OR owner_id=$1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
        SELECT
            t.id, t.property_id, t.tenant_id, t.owner_id, t.subject, t.last_message_at, t.created_at,
            (SELECT COUNT(*) FROM messages m
               WHERE m.thread_id=t.id AND m.sender_id<>$1 AND m.read_at IS NULL) AS unread
        FROM message_threads t
        WHERE t.tenant_id=$1 OR t.owner_id=$1
        ORDER BY t.last_message_at DESC
        LIMIT $2 OFFSET $3
    `, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, func(row pgx.Row) (*models.Thread, error) {
		var t models.Thread
		err := row.Scan(&t.ID, &t.PropertyID, &t.TenantID, &t.OwnerID, &t.Subject,
			&t.LastMessageAt, &t.CreatedAt, &t.UnreadCount)
		return &t, err
	})
	return out, total, err
}

func (r *messageRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO messages (id, thread_id, sender_id, body, created_at)
            VALUES ($1,$2,$3,$4, NOW())
            RETURNING created_at
        `, m.ID, m.ThreadID, m.SenderID, m.Body).Scan(&m.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE message_threads SET last_message_at=$1 WHERE id=$2`, m.CreatedAt, m.ThreadID)
		return err
	})
}

func (r *messageRepo) ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*models.Message, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE thread_id=$1`, threadID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
        SELECT id, thread_id, sender_id, body, read_at, created_at
        FROM messages
        WHERE thread_id=$1
        ORDER BY created_at ASC
        LIMIT $2 OFFSET $3
    `, threadID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanMessage)
	return out, total, err
}

func (r *messageRepo) MarkRead(ctx context.Context, threadID, readerID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE messages SET read_at=$1
        WHERE thread_id=$2 AND sender_id<>$3 AND read_at IS NULL
    `, at, threadID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectThread() string {
	return `
        SELECT id, property_id, tenant_id, owner_id, subject, last_message_at, created_at
        FROM message_threads
    `
}

func scanThread(row pgx.Row) (*models.Thread, error) {
	var t models.Thread
	err := row.Scan(&t.ID, &t.PropertyID, &t.TenantID, &t.OwnerID, &t.Subject, &t.LastMessageAt, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
