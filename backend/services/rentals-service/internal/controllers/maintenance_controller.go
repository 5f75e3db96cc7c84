package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type MaintenanceController struct {
	maintenance *services.MaintenanceService
}

func NewMaintenanceController(maintenance *services.MaintenanceService) *MaintenanceController {
	return &MaintenanceController{maintenance: maintenance}
}

// POST /api/v1/maintenance-requests
func (c *MaintenanceController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.CreateMaintenanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.maintenance.Create(r.Context(), id, req)
	respond(w, http.StatusCreated, out, err)
}

// GET /api/v1/maintenance-requests?status=open,in_progress&priority=emergency
func (c *MaintenanceController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	priority := models.MaintenancePriority(r.URL.Query().Get("priority"))
	out, err := c.maintenance.List(r.Context(), id, csvQuery[models.MaintenanceStatus](r, "status"), priority, page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/maintenance-requests/{id}
func (c *MaintenanceController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	reqID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.maintenance.Get(r.Context(), id, reqID)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/maintenance-requests/{id}/transition
func (c *MaintenanceController) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	reqID, ok := pathUUID(w, r, "id")
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
	out, err := c.maintenance.Transition(r.Context(), id, reqID, req)
	respond(w, http.StatusOK, out, err)
}
