package services

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// mutationError maps what a repository Mutate returned into the AppError the
// caller sees. current is the row as stored; view renders it for the 409 body.
func mutationError[T any](err error, current T, view func(T) any) error {
	var appErr *utils.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, pgx.ErrNoRows):
		return utils.NotFound("Record not found")
	case errors.Is(err, utils.ErrRowVersionConflict):
		return utils.VersionConflict(view(current))
	case errors.Is(err, models.ErrAlreadyInState):
		return utils.Conflict("Record is already in the requested state", err)
	case errors.Is(err, models.ErrTransitionNotDefined), errors.Is(err, models.ErrActorNotPermitted):
		return utils.InvalidTransition(err.Error())
	default:
		return utils.Internal("Failed to update record", err)
	}
}

// transitionError is mutationError's counterpart for checks made before a
// Mutate call.
func transitionError(err error) error {
	switch {
	case errors.Is(err, models.ErrAlreadyInState):
		return utils.Conflict("Record is already in the requested state", err)
	default:
		return utils.InvalidTransition(err.Error())
	}
}

func auditEntry(
	caller *middleware.Identity,
	actor models.Actor,
	action models.AuditAction,
	targetType models.AuditTargetType,
	targetID uuid.UUID,
	details map[string]any,
) *models.AuditLog {
	entry := &models.AuditLog{
		ID:         uuid.New(),
		ActorRole:  actor,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
	}
	if caller != nil {
		id := caller.UserID
		entry.ActorID = &id
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			msg := json.RawMessage(raw)
			entry.Details = &msg
		}
	}
	return entry
}

// systemIdentity is nil: audit rows for webhooks and cron jobs carry no actor id.
var systemIdentity *middleware.Identity

func isAdmin(caller *middleware.Identity) bool {
	return caller != nil && caller.Role == models.RoleAdmin
}
