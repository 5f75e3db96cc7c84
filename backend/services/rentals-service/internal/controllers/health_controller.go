package controllers

import (
	"context"
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// HealthChecker is satisfied by *app.App.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthController checks DB connectivity.
type HealthController struct {
	app HealthChecker
}

func NewHealthController(app HealthChecker) *HealthController {
	return &HealthController{app: app}
}

// HealthCheckHandler => GET /health
func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := c.app.HealthCheck(r.Context()); err != nil {
		utils.Logger.WithError(err).Error("rentals-service DB unreachable")
		utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeInternal, "Database unreachable", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.HealthCheckResponse{Status: "OK"})
}
