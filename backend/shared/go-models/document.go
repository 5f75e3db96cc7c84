package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentIDProof     DocumentKind = "id_proof"
	DocumentIncomeProof DocumentKind = "income_proof"
	DocumentReference   DocumentKind = "reference"
	DocumentLease       DocumentKind = "lease"
	DocumentOther       DocumentKind = "other"
)

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentUploaded DocumentStatus = "uploaded"
)

const MaxDocumentBytes int64 = 10 << 20

// AllowedDocumentTypes maps accepted content types to file extensions.
var AllowedDocumentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/heic":      ".heic",
}

type Document struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	ApplicationID *uuid.UUID     `json:"application_id,omitempty"`
	LeaseID       *uuid.UUID     `json:"lease_id,omitempty"`
	Kind          DocumentKind   `json:"kind"`
	FileName      string         `json:"file_name"`
	ContentType   string         `json:"content_type"`
	SizeBytes     int64          `json:"size_bytes"`
	StoragePath   string         `json:"-"`
	Status        DocumentStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}
