package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

/*
EntityWithVersion:

* `comparable`  → lets us use `==` to compare two values of type T
* the three concurrency methods
*/
type EntityWithVersion interface {
	comparable
	GetID() string
	GetRowVersion() int64
	SetRowVersion(int64)
}

var ErrTooMuchContention = errors.New("too much contention")

type UpdateIfVersionFunc[T EntityWithVersion] func(
	ctx context.Context,
	entity T,
	expectedVersion int64,
) (pgconn.CommandTag, error)

// TxUpdateFunc writes entity through q, guarded by expectedVersion.
type TxUpdateFunc[T EntityWithVersion] func(
	ctx context.Context,
	q DB,
	entity T,
	expectedVersion int64,
) (pgconn.CommandTag, error)

type GetByIDFunc[T EntityWithVersion] func(
	ctx context.Context,
	id string,
) (T, error)

// MutateFunc changes a locked row in place. A non-nil audit entry is
// written in the same transaction as the row update.
type MutateFunc[T EntityWithVersion] func(T) (*models.AuditLog, error)

/*
WithRetry runs a read-mutate-update loop with optimistic locking.
*/
func WithRetry[T EntityWithVersion](
	ctx context.Context,
	maxRetries int,
	id string,
	getByID GetByIDFunc[T],
	updateIfVersion UpdateIfVersionFunc[T],
	mutate func(T) error,
) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		current, err := getByID(ctx, id)
		if err != nil {
			return err
		}

		// zero value of T (nil for pointers)
		var zero T
		if current == zero {
			return pgx.ErrNoRows
		}

		oldVersion := current.GetRowVersion()

		if err := mutate(current); err != nil {
			return err
		}

		tag, err := updateIfVersion(ctx, current, oldVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			current.SetRowVersion(oldVersion + 1)
			return nil
		}
		// someone else updated first – retry
	}
	return fmt.Errorf("updating %q: %w", id, ErrTooMuchContention)
}

/*
MutateLocked reads the row with SELECT ... FOR UPDATE, checks the caller's
expected version (when given), applies mutate and writes the row plus an
optional audit entry in one transaction.

On a version mismatch it returns the current row together with
utils.ErrRowVersionConflict so callers can show what changed.
*/
func MutateLocked[T EntityWithVersion](
	ctx context.Context,
	db DB,
	selectForUpdate string,
	scan func(pgx.Row) (T, error),
	id string,
	expected *int64,
	mutate MutateFunc[T],
	update TxUpdateFunc[T],
) (T, error) {
	var zero, result T
	err := inTx(ctx, db, func(tx pgx.Tx) error {
		current, err := scan(tx.QueryRow(ctx, selectForUpdate, id))
		if err != nil {
			return err
		}
		if current == zero {
			return pgx.ErrNoRows
		}
		if expected != nil && *expected != current.GetRowVersion() {
			result = current
			return utils.ErrRowVersionConflict
		}

		oldVersion := current.GetRowVersion()
		audit, err := mutate(current)
		if err != nil {
			result = current
			return err
		}

		tag, err := update(ctx, tx, current, oldVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return utils.ErrNoRowsUpdated
		}
		current.SetRowVersion(oldVersion + 1)

		if audit != nil {
			if err := insertAuditLog(ctx, tx, audit); err != nil {
				return err
			}
		}
		result = current
		return nil
	})
	return result, err
}
