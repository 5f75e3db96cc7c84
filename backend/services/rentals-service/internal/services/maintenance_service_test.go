package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func TestMaintenanceRequestLifecycle(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	e.h.CreateTestLease(app, owner.ID, models.LeaseFullySigned)

	e.triager.result = &TriageResult{
		Category: models.MaintenancePlumbing,
		Priority: models.PriorityEmergency,
		Summary:  "Active leak under the kitchen sink",
	}

	req, err := e.maintenance.Create(e.h.Ctx, identity(tenant), dtos.CreateMaintenanceRequest{
		PropertyID:  prop.ID,
		Title:       "Water everywhere",
		Description: "The pipe under the sink burst",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.triager.calls)
	assert.Equal(t, models.MaintenancePlumbing, req.Category)
	assert.Equal(t, models.PriorityEmergency, req.Priority)
	assert.Equal(t, "Active leak under the kitchen sink", utils.Val(req.TriageSummary))
	assert.Equal(t, models.MaintenanceOpen, req.Status)
	assert.NotNil(t, req.ImageURLs)

	assert.Len(t, e.mailer.To(owner.Email), 1)
	require.Len(t, e.sms.sent, 1)
	assert.Contains(t, e.sms.sent[0], *owner.Phone)

	t.Run("tenant cannot start work", func(t *testing.T) {
		_, err := e.maintenance.Transition(e.h.Ctx, identity(tenant), req.ID, dtos.TransitionRequest{To: "in_progress"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	t.Run("other owners see not found", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleOwner, "other")
		_, err := e.maintenance.Get(e.h.Ctx, identity(other), req.ID)
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	started, err := e.maintenance.Transition(e.h.Ctx, identity(owner), req.ID, dtos.TransitionRequest{
		To:    "in_progress",
		Notes: utils.Ptr("Plumber booked for 2pm"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Plumber booked for 2pm", utils.Val(started.OwnerNotes))
	assert.NotEmpty(t, e.mailer.To(tenant.Email))

	resolved, err := e.maintenance.Transition(e.h.Ctx, identity(owner), req.ID, dtos.TransitionRequest{To: "resolved"})
	require.NoError(t, err)
	assert.NotNil(t, resolved.ResolvedAt)

	reopened, err := e.maintenance.Transition(e.h.Ctx, identity(tenant), req.ID, dtos.TransitionRequest{
		To:         "in_progress",
		Notes:      utils.Ptr("Still dripping"),
		RowVersion: utils.Ptr(resolved.RowVersion),
	})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, "Plumber booked for 2pm", utils.Val(reopened.OwnerNotes), "tenant notes do not replace owner notes")

	mine, err := e.maintenance.List(e.h.Ctx, identity(tenant), nil, "", utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)

	theirs, err := e.maintenance.List(e.h.Ctx, identity(owner), []models.MaintenanceStatus{models.MaintenanceInProgress}, models.PriorityEmergency, utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, theirs.Total)

	_, err = e.maintenance.List(e.h.Ctx, identity(owner), nil, "urgent", utils.Pagination{Page: 1, PageSize: 10})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
}

func TestMaintenanceRequiresActiveLease(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")

	_, err := e.maintenance.Create(e.h.Ctx, identity(tenant), dtos.CreateMaintenanceRequest{
		PropertyID:  prop.ID,
		Title:       "Broken heater",
		Description: "No heat since Monday",
		Category:    models.MaintenanceHVAC,
		Priority:    models.PriorityHigh,
	})
	requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)
}

func TestMaintenanceTriageFallback(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	e.h.CreateTestLease(app, owner.ID, models.LeaseFullySigned)
	e.triager.err = errors.New("model unavailable")

	req, err := e.maintenance.Create(e.h.Ctx, identity(tenant), dtos.CreateMaintenanceRequest{
		PropertyID:  prop.ID,
		Title:       "Squeaky door",
		Description: "Bedroom door squeaks",
		Priority:    models.PriorityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceOther, req.Category)
	assert.Equal(t, models.PriorityLow, req.Priority)
	assert.Nil(t, req.TriageSummary)
	assert.Empty(t, e.sms.sent)
}
