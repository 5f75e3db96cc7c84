package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type InquiryController struct {
	inquiries *services.InquiryService
}

func NewInquiryController(inquiries *services.InquiryService) *InquiryController {
	return &InquiryController{inquiries: inquiries}
}

// POST /api/v1/inquiries (optional auth)
func (c *InquiryController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateInquiryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.inquiries.Create(r.Context(), optionalCaller(r), req, utils.ClientIP(r))
	respond(w, http.StatusCreated, out, err)
}

// ListHandler backs GET /owner/inquiries and /admin/inquiries.
func (c *InquiryController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	status := models.InquiryStatus(r.URL.Query().Get("status"))
	out, err := c.inquiries.List(r.Context(), id, status, page)
	respond(w, http.StatusOK, out, err)
}

// PATCH /api/v1/inquiries/{id}/status
func (c *InquiryController) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	inqID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.InquiryStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.inquiries.SetStatus(r.Context(), id, inqID, req)
	respond(w, http.StatusOK, out, err)
}
