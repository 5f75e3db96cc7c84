package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread is a tenant/owner conversation about one property.
type Thread struct {
	ID            uuid.UUID `json:"id"`
	PropertyID    uuid.UUID `json:"property_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Subject       string    `json:"subject"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`

	// populated by list queries for the requesting participant
	UnreadCount int `json:"unread_count"`
}

func (t *Thread) HasParticipant(userID uuid.UUID) bool {
	return t.TenantID == userID || t.OwnerID == userID
}

// Counterpart returns the other participant.
func (t *Thread) Counterpart(userID uuid.UUID) uuid.UUID {
	if t.TenantID == userID {
		return t.OwnerID
	}
	return t.TenantID
}

type Message struct {
	ID        uuid.UUID  `json:"id"`
	ThreadID  uuid.UUID  `json:"thread_id"`
	SenderID  uuid.UUID  `json:"sender_id"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
