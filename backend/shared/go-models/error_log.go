package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ErrorSource string

const (
	ErrorSourceClient ErrorSource = "client"
	ErrorSourceServer ErrorSource = "server"
)

type ErrorLog struct {
	ID        uuid.UUID        `json:"id"`
	UserID    *uuid.UUID       `json:"user_id,omitempty"`
	Source    ErrorSource      `json:"source"`
	Message   string           `json:"message"`
	Stack     *string          `json:"stack,omitempty"`
	Path      *string          `json:"path,omitempty"`
	UserAgent *string          `json:"user_agent,omitempty"`
	Context   *json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
