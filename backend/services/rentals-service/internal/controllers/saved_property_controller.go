package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
)

type SavedPropertyController struct {
	saved *services.SavedPropertyService
}

func NewSavedPropertyController(saved *services.SavedPropertyService) *SavedPropertyController {
	return &SavedPropertyController{saved: saved}
}

// PUT /api/v1/saved-properties/{property_id}
func (c *SavedPropertyController) SaveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "property_id")
	if !ok {
		return
	}
	out, err := c.saved.Save(r.Context(), id, propertyID)
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	respond(w, status, out, err)
}

// DELETE /api/v1/saved-properties/{property_id}
func (c *SavedPropertyController) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "property_id")
	if !ok {
		return
	}
	out, err := c.saved.Remove(r.Context(), id, propertyID)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/saved-properties
func (c *SavedPropertyController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.saved.List(r.Context(), id, page)
	respond(w, http.StatusOK, out, err)
}
