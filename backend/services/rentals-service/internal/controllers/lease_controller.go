package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type LeaseController struct {
	leases *services.LeaseService
}

func NewLeaseController(leases *services.LeaseService) *LeaseController {
	return &LeaseController{leases: leases}
}

// POST /api/v1/applications/{id}/lease
func (c *LeaseController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.CreateLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lease, err := c.leases.Create(r.Context(), id, appID, req)
	respond(w, http.StatusCreated, lease, err)
}

// GET /api/v1/leases
func (c *LeaseController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.leases.List(r.Context(), id, page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/leases/{id}
func (c *LeaseController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	leaseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lease, err := c.leases.Get(r.Context(), id, leaseID)
	respond(w, http.StatusOK, lease, err)
}

// POST /api/v1/leases/{id}/send
func (c *LeaseController) SendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	leaseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.RowVersionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	lease, err := c.leases.Send(r.Context(), id, leaseID, req)
	respond(w, http.StatusOK, lease, err)
}

// POST /api/v1/leases/{id}/sign
func (c *LeaseController) SignHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	leaseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.SignLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	lease, err := c.leases.Sign(r.Context(), id, leaseID, req, utils.ClientIP(r))
	respond(w, http.StatusOK, lease, err)
}

// POST /api/v1/leases/{id}/void
func (c *LeaseController) VoidHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	leaseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.VoidLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	lease, err := c.leases.Void(r.Context(), id, leaseID, req)
	respond(w, http.StatusOK, lease, err)
}
