package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
)

type ProfileController struct {
	profiles *services.ProfileService
}

func NewProfileController(profiles *services.ProfileService) *ProfileController {
	return &ProfileController{profiles: profiles}
}

// GET /api/v1/me
func (c *ProfileController) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	p, err := c.profiles.Me(r.Context(), id)
	respond(w, http.StatusOK, p, err)
}

// PUT /api/v1/me
func (c *ProfileController) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	p, err := c.profiles.UpdateMe(r.Context(), id, req)
	respond(w, http.StatusOK, p, err)
}

// GET /api/v1/profiles/{id}
func (c *ProfileController) GetPublicHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.profiles.Public(r.Context(), userID)
	respond(w, http.StatusOK, p, err)
}

// PATCH /api/v1/admin/users/{id}/role
func (c *ProfileController) ChangeRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.ChangeRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	p, err := c.profiles.ChangeRole(r.Context(), id, userID, req)
	respond(w, http.StatusOK, p, err)
}
