package dtos

import (
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

// Profile is the public face of a user, visible to counterparties
// (owner to applicant, participants of a thread).
type Profile struct {
	ID        string          `json:"id"`
	FullName  string          `json:"full_name"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Role      models.UserRole `json:"role"`
}

func NewProfileFromModel(p models.Profile) Profile {
	return Profile{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
	}
}
