package services

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func requireAppError(t *testing.T, err error, status int, code string) *utils.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected *utils.AppError, got %T: %v", err, err)
	assert.Equal(t, status, appErr.StatusCode, appErr.Message)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func submitRequest(propertyID models.Property) dtos.SubmitApplicationRequest {
	return dtos.SubmitApplicationRequest{
		PropertyID:         propertyID.ID,
		FullName:           "  Tess Tenant ",
		Email:              "Tess@Example.com",
		Phone:              "(305) 555-0142",
		MonthlyIncomeCents: 800000,
		MoveInDate:         time.Now().UTC().AddDate(0, 1, 0),
		Occupants:          2,
		SSNLast4:           utils.Ptr("6789"),
	}
}

func TestSubmitApplication(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")

	app, err := e.applications.Submit(e.h.Ctx, identity(tenant), submitRequest(*prop))
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationSubmitted, app.Status)
	assert.Equal(t, "Tess Tenant", app.FullName)
	assert.Equal(t, "tess@example.com", app.Email)
	assert.Equal(t, "+13055550142", app.Phone)
	assert.Equal(t, "***-**-6789", utils.Val(app.SSNMasked))
	assert.Equal(t, int64(1), app.RowVersion)
	assert.ElementsMatch(t, []models.ApplicationStatus{models.ApplicationWithdrawn}, app.AllowedTransitions)
	require.NotNil(t, app.Property)
	assert.Equal(t, prop.ID.String(), app.Property.ID)

	history := e.h.Store.Audit.All()
	require.Len(t, history, 1)
	assert.Equal(t, models.AuditCreate, history[0].Action)
	assert.Equal(t, app.ID, history[0].TargetID)

	assert.Len(t, e.mailer.To("tess@example.com"), 1)
	assert.Len(t, e.mailer.To(owner.Email), 1)

	t.Run("second active application for the same property is a conflict", func(t *testing.T) {
		_, err := e.applications.Submit(e.h.Ctx, identity(tenant), submitRequest(*prop))
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	t.Run("owners cannot apply", func(t *testing.T) {
		_, err := e.applications.Submit(e.h.Ctx, identity(owner), submitRequest(*prop))
		requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)
	})

	t.Run("move-in date in the past", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleTenant, "late")
		req := submitRequest(*prop)
		req.MoveInDate = time.Now().AddDate(0, 0, -3)
		_, err := e.applications.Submit(e.h.Ctx, identity(other), req)
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})

	t.Run("invalid phone", func(t *testing.T) {
		other := e.h.CreateTestProfile(models.RoleTenant, "badphone")
		req := submitRequest(*prop)
		req.Phone = "12"
		_, err := e.applications.Submit(e.h.Ctx, identity(other), req)
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})
}

func TestSubmitApplicationRequiresAvailableProperty(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	require.NoError(t, e.listings.SystemTransition(e.h.Ctx, prop.ID, models.PropertyStatusPending, "test"))
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")

	_, err := e.applications.Submit(e.h.Ctx, identity(tenant), submitRequest(*prop))
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
}

func TestApplicationTransitions(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationSubmitted)

	t.Run("skipping a step is an invalid transition", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "approved"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	t.Run("tenant cannot review their own application", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(tenant), app.ID, dtos.TransitionRequest{To: "under_review"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "accepted"})
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})

	t.Run("rejecting needs a reason", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "rejected", Reason: utils.Ptr("  ")})
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})

	t.Run("strangers see not found", func(t *testing.T) {
		stranger := e.h.CreateTestProfile(models.RoleOwner, "stranger")
		_, err := e.applications.Transition(e.h.Ctx, identity(stranger), app.ID, dtos.TransitionRequest{To: "under_review"})
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	reviewed, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{
		To:         "under_review",
		RowVersion: utils.Ptr(int64(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationUnderReview, reviewed.Status)
	assert.Equal(t, int64(2), reviewed.RowVersion)
	assert.Equal(t, owner.ID, utils.Val(reviewed.ReviewerID))

	t.Run("stale row_version returns the current record", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{
			To:         "pre_approved",
			RowVersion: utils.Ptr(int64(1)),
		})
		appErr := requireAppError(t, err, http.StatusConflict, utils.ErrCodeRowVersionConflict)
		current, ok := appErr.Details.(shared_dtos.Application)
		require.True(t, ok, "details should be the application view, got %T", appErr.Details)
		assert.Equal(t, int64(2), current.RowVersion)
		assert.Equal(t, models.ApplicationUnderReview, current.Status)
	})

	t.Run("repeating the current status is a conflict", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "under_review"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	pre, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "pre_approved"})
	require.NoError(t, err)
	assert.Contains(t, pre.AllowedTransitions, models.ApplicationPaymentPending)

	pending, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "payment_pending"})
	require.NoError(t, err)
	require.NotNil(t, pending.PaymentDueAt)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), *pending.PaymentDueAt, time.Minute)

	t.Run("only the payment webhook marks an application paid", func(t *testing.T) {
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "paid_under_review"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	history, err := e.applications.History(e.h.Ctx, identity(tenant), app.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, entry := range history {
		assert.Equal(t, models.AuditTransition, entry.Action)
		assert.Equal(t, models.ActorOwner, entry.ActorRole)
	}
}

func TestTenantWithdraw(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationUnderReview)

	out, err := e.applications.Transition(e.h.Ctx, identity(tenant), app.ID, dtos.TransitionRequest{To: "withdrawn"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, out.Status)
	assert.NotNil(t, out.DecidedAt)
	assert.Nil(t, out.ReviewerID)
	assert.Empty(t, out.AllowedTransitions)
}

func TestApprovalSettlesProperty(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	winner := e.h.CreateTestProfile(models.RoleTenant, "winner")
	rival := e.h.CreateTestProfile(models.RoleTenant, "rival")
	late := e.h.CreateTestProfile(models.RoleTenant, "late")

	winning := e.h.CreateTestApplication(prop.ID, winner.ID, models.ApplicationPaidUnderReview)
	competing := e.h.CreateTestApplication(prop.ID, rival.ID, models.ApplicationUnderReview)
	withdrawn := e.h.CreateTestApplication(prop.ID, late.ID, models.ApplicationWithdrawn)

	approved, err := e.applications.Transition(e.h.Ctx, identity(owner), winning.ID, dtos.TransitionRequest{
		To:    "approved",
		Notes: utils.Ptr("strong references"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, approved.Status)

	p, err := e.h.Store.Properties.GetByID(e.h.Ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusPending, p.Status)

	c, err := e.h.Store.Applications.GetByID(e.h.Ctx, competing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, c.Status)
	assert.Equal(t, constants.RejectReasonPropertyLeased, utils.Val(c.DecisionReason))

	w, err := e.h.Store.Applications.GetByID(e.h.Ctx, withdrawn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, w.Status)

	t.Run("a second approval is refused once the property is leased", func(t *testing.T) {
		require.NoError(t, e.listings.SystemTransition(e.h.Ctx, prop.ID, models.PropertyStatusRented, "lease signed"))
		other := e.h.CreateTestProfile(models.RoleTenant, "other")
		a := e.h.CreateTestApplication(prop.ID, other.ID, models.ApplicationPaidUnderReview)
		_, err := e.applications.Transition(e.h.Ctx, identity(owner), a.ID, dtos.TransitionRequest{To: "approved"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})
}

func TestConcurrentApprovalsTakeTheListingOnce(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	first := e.h.CreateTestApplication(prop.ID, e.h.CreateTestProfile(models.RoleTenant, "first").ID, models.ApplicationPaidUnderReview)
	second := e.h.CreateTestApplication(prop.ID, e.h.CreateTestProfile(models.RoleTenant, "second").ID, models.ApplicationPaidUnderReview)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = e.applications.Transition(e.h.Ctx, identity(owner), id, dtos.TransitionRequest{To: "approved"})
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			var ae *utils.AppError
			require.True(t, errors.As(err, &ae))
		}
	}
	assert.Equal(t, 1, failed)

	approved, _, err := e.h.Store.Applications.List(e.h.Ctx, models.ApplicationFilters{
		PropertyID: &prop.ID,
		Statuses:   []models.ApplicationStatus{models.ApplicationApproved},
	})
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	p, err := e.h.Store.Properties.GetByID(e.h.Ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusPending, p.Status)

	history, err := e.h.Store.Audit.ListByTarget(e.h.Ctx, models.TargetProperty, prop.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	require.NotNil(t, last.Details)
	assert.Contains(t, string(*last.Details), approved[0].ID.String())
}

func TestApprovalLosesToAListingThatMoved(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaidUnderReview)

	// a pending listing is already spoken for
	require.NoError(t, e.listings.SystemTransition(e.h.Ctx, prop.ID, models.PropertyStatusPending, "held"))
	_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "approved"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)

	a, err := e.h.Store.Applications.GetByID(e.h.Ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPaidUnderReview, a.Status)
}

func TestListApplicationsIsScopedByRole(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	_, otherProp := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	other := e.h.CreateTestProfile(models.RoleTenant, "other")
	admin := e.h.CreateTestProfile(models.RoleAdmin, "admin")

	e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationSubmitted)
	e.h.CreateTestApplication(otherProp.ID, tenant.ID, models.ApplicationSubmitted)
	e.h.CreateTestApplication(prop.ID, other.ID, models.ApplicationRejected)

	page := utils.Pagination{Page: 1, PageSize: 20}

	mine, err := e.applications.List(e.h.Ctx, identity(tenant), nil, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)

	owned, err := e.applications.List(e.h.Ctx, identity(owner), nil, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 2, owned.Total)

	active, err := e.applications.List(e.h.Ctx, identity(owner), nil, []models.ApplicationStatus{models.ApplicationSubmitted}, page)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Total)

	all, err := e.applications.List(e.h.Ctx, identity(admin), nil, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	_, err = e.applications.List(e.h.Ctx, identity(admin), nil, []models.ApplicationStatus{"bogus"}, page)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
}

func TestExpireOverduePayments(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	slow := e.h.CreateTestProfile(models.RoleTenant, "slow")
	prompt := e.h.CreateTestProfile(models.RoleTenant, "prompt")

	overdue := e.h.CreateTestApplication(prop.ID, slow.ID, models.ApplicationPaymentPending)
	onTime := e.h.CreateTestApplication(prop.ID, prompt.ID, models.ApplicationPaymentPending)
	_, err := e.h.Store.Applications.Mutate(e.h.Ctx, overdue.ID, nil, func(a *models.Application) (*models.AuditLog, error) {
		a.PaymentDueAt = utils.Ptr(time.Now().Add(-time.Hour))
		return nil, nil
	})
	require.NoError(t, err)

	n, err := e.applications.ExpireOverduePayments(e.h.Ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.h.Store.Applications.GetByID(e.h.Ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, got.Status)
	assert.Equal(t, constants.RejectReasonPaymentExpired, utils.Val(got.DecisionReason))
	assert.Len(t, e.mailer.To(overdue.Email), 1)

	still, err := e.h.Store.Applications.GetByID(e.h.Ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPaymentPending, still.Status)

	n, err = e.applications.ExpireOverduePayments(e.h.Ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
