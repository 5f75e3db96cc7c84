package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreate     AuditAction = "CREATE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditDelete     AuditAction = "DELETE"
	AuditTransition AuditAction = "TRANSITION"
	AuditSign       AuditAction = "SIGN"
	AuditPayment    AuditAction = "PAYMENT"
)

type AuditTargetType string

const (
	TargetProfile     AuditTargetType = "PROFILE"
	TargetProperty    AuditTargetType = "PROPERTY"
	TargetApplication AuditTargetType = "APPLICATION"
	TargetLease       AuditTargetType = "LEASE"
	TargetPayment     AuditTargetType = "PAYMENT"
	TargetMaintenance AuditTargetType = "MAINTENANCE_REQUEST"
	TargetInquiry     AuditTargetType = "INQUIRY"
)

// AuditLog records who changed what. ActorID is nil for system actions.
type AuditLog struct {
	ID         uuid.UUID        `json:"id"`
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	ActorRole  Actor            `json:"actor_role"`
	Action     AuditAction      `json:"action"`
	TargetID   uuid.UUID        `json:"target_id"`
	TargetType AuditTargetType  `json:"target_type"`
	Details    *json.RawMessage `json:"details,omitempty"` // JSONB, e.g. {"from":..,"to":..,"reason":..}
	CreatedAt  time.Time        `json:"created_at"`
}
