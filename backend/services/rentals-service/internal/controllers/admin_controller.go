package controllers

import (
	"net/http"
	"strings"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// AdminController serves the /admin routes that have no owning resource
// controller. Every route is behind middleware.AdminOnly.
type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

// GET /api/v1/admin/stats
func (c *AdminController) StatsHandler(w http.ResponseWriter, r *http.Request) {
	out, err := c.admin.Stats(r.Context())
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/admin/audit-logs?target_type=APPLICATION&target_id=
func (c *AdminController) AuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	targetID, ok := queryUUID(w, r, "target_id")
	if !ok {
		return
	}
	targetType := models.AuditTargetType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("target_type"))))
	out, err := c.admin.AuditLogs(r.Context(), targetType, targetID, page)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/admin/send-email
func (c *AdminController) SendEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.SendEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := c.admin.SendEmail(r.Context(), req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}
