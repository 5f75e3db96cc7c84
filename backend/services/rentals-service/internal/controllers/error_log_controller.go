package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type ErrorLogController struct {
	logs *services.ErrorLogService
}

func NewErrorLogController(logs *services.ErrorLogService) *ErrorLogController {
	return &ErrorLogController{logs: logs}
}

// POST /api/v1/error-logs (optional auth)
func (c *ErrorLogController) ReportHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ErrorReportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.logs.Report(r.Context(), optionalCaller(r), req, r.UserAgent())
	respond(w, http.StatusCreated, out, err)
}

// GET /api/v1/admin/error-logs?source=client|server
func (c *ErrorLogController) ListHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	source := models.ErrorSource(r.URL.Query().Get("source"))
	out, err := c.logs.List(r.Context(), source, page)
	respond(w, http.StatusOK, out, err)
}
