package repositories

import (
	"context"
)

// StripeEventRepository deduplicates webhook deliveries by event id.
type StripeEventRepository interface {
	// MarkProcessed records the event and reports false if it was already recorded.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	// Forget removes a record so a failed handler can be retried by Stripe.
	Forget(ctx context.Context, eventID string) error
}

type stripeEventRepo struct {
	db DB
}

func NewStripeEventRepository(db DB) StripeEventRepository {
	return &stripeEventRepo{db: db}
}

func (r *stripeEventRepo) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO stripe_events (id, type, processed_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (id) DO NOTHING
    `, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *stripeEventRepo) Forget(ctx context.Context, eventID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM stripe_events WHERE id=$1`, eventID)
	return err
}
