package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type ApplicationController struct {
	applications *services.ApplicationService
}

func NewApplicationController(applications *services.ApplicationService) *ApplicationController {
	return &ApplicationController{applications: applications}
}

// POST /api/v1/applications
func (c *ApplicationController) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.SubmitApplicationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	app, err := c.applications.Submit(r.Context(), id, req)
	respond(w, http.StatusCreated, app, err)
}

// ListHandler backs GET /applications, /owner/applications and
// /admin/applications. The service scopes rows by the caller's role.
func (c *ApplicationController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	propertyID, ok := queryUUID(w, r, "property_id")
	if !ok {
		return
	}
	out, err := c.applications.List(r.Context(), id, propertyID, csvQuery[models.ApplicationStatus](r, "status"), page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/applications/{id}
func (c *ApplicationController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	app, err := c.applications.Get(r.Context(), id, appID)
	respond(w, http.StatusOK, app, err)
}

// GET /api/v1/applications/{id}/history
func (c *ApplicationController) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entries, err := c.applications.History(r.Context(), id, appID)
	respond(w, http.StatusOK, entries, err)
}

// POST /api/v1/applications/{id}/transition
func (c *ApplicationController) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.TransitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	app, err := c.applications.Transition(r.Context(), id, appID, req)
	respond(w, http.StatusOK, app, err)
}
