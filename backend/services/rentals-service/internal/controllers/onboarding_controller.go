package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type OnboardingController struct {
	onboarding *services.OnboardingService
}

func NewOnboardingController(onboarding *services.OnboardingService) *OnboardingController {
	return &OnboardingController{onboarding: onboarding}
}

// GET /api/v1/onboarding
func (c *OnboardingController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := c.onboarding.Get(r.Context(), id)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/onboarding/steps/{step}
func (c *OnboardingController) CompleteStepHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.RowVersionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	expected, ok := expectedVersion(w, r, req.RowVersion)
	if !ok {
		return
	}
	step := models.OnboardingStep(mux.Vars(r)["step"])
	out, err := c.onboarding.CompleteStep(r.Context(), id, step, expected)
	respond(w, http.StatusOK, out, err)
}
