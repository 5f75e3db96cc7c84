package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleTenant UserRole = "tenant"
	RoleOwner  UserRole = "owner"
	RoleAdmin  UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleTenant, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Actor maps a role to the actor it plays in status machines.
func (r UserRole) Actor() Actor {
	switch r {
	case RoleOwner:
		return ActorOwner
	case RoleAdmin:
		return ActorAdmin
	default:
		return ActorTenant
	}
}

// Profile mirrors a hosted-auth user. ID is the auth user id.
type Profile struct {
	Versioned

	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Profile) GetID() string { return p.ID.String() }
