package services

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

func TestLeaseSigningFlow(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	require.NoError(t, e.listings.SystemTransition(e.h.Ctx, prop.ID, models.PropertyStatusPending, "approved"))

	start := time.Now().UTC().AddDate(0, 0, 7)
	create := dtos.CreateLeaseRequest{StartDate: start, TermMonths: 12, RentDueDay: 1}

	t.Run("tenants cannot draft leases", func(t *testing.T) {
		_, err := e.leases.Create(e.h.Ctx, identity(tenant), app.ID, create)
		requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)
	})

	lease, err := e.leases.Create(e.h.Ctx, identity(owner), app.ID, create)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseDraft, lease.Status)
	assert.Equal(t, start.Truncate(24*time.Hour).AddDate(1, 0, -1), lease.EndDate)
	assert.Equal(t, utils.ContentHash(lease.Body), lease.ContentHash)
	assert.True(t, strings.Contains(lease.Body, app.FullName), "lease body names the tenant")
	assert.Nil(t, lease.NextRentDue)

	t.Run("one lease per application", func(t *testing.T) {
		_, err := e.leases.Create(e.h.Ctx, identity(owner), app.ID, create)
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	t.Run("tenant cannot sign a draft", func(t *testing.T) {
		_, err := e.leases.Sign(e.h.Ctx, identity(tenant), lease.ID, dtos.SignLeaseRequest{
			SignatureName: "Tess Tenant",
			ContentHash:   lease.ContentHash,
		}, "198.51.100.7")
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	sent, err := e.leases.Send(e.h.Ctx, identity(owner), lease.ID, dtos.RowVersionRequest{RowVersion: utils.Ptr(lease.RowVersion)})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseSent, sent.Status)
	assert.NotEmpty(t, e.mailer.To(tenant.Email))

	t.Run("signature must match the stored text", func(t *testing.T) {
		_, err := e.leases.Sign(e.h.Ctx, identity(tenant), lease.ID, dtos.SignLeaseRequest{
			SignatureName: "Tess Tenant",
			ContentHash:   utils.ContentHash("something else"),
		}, "198.51.100.7")
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	tenantSigned, err := e.leases.Sign(e.h.Ctx, identity(tenant), lease.ID, dtos.SignLeaseRequest{
		SignatureName: " Tess Tenant ",
		ContentHash:   strings.ToUpper(lease.ContentHash),
	}, "198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, models.LeaseTenantSigned, tenantSigned.Status)
	assert.Equal(t, "Tess Tenant", utils.Val(tenantSigned.TenantSignature))
	assert.Equal(t, "198.51.100.7", utils.Val(tenantSigned.TenantSignedIP))
	assert.NotNil(t, tenantSigned.TenantSignedAt)

	t.Run("a stale row_version is refused", func(t *testing.T) {
		_, err := e.leases.Sign(e.h.Ctx, identity(owner), lease.ID, dtos.SignLeaseRequest{
			SignatureName: "Olive Owner",
			ContentHash:   lease.ContentHash,
			RowVersion:    utils.Ptr(sent.RowVersion),
		}, "203.0.113.9")
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeRowVersionConflict)
	})

	full, err := e.leases.Sign(e.h.Ctx, identity(owner), lease.ID, dtos.SignLeaseRequest{
		SignatureName: "Olive Owner",
		ContentHash:   lease.ContentHash,
		RowVersion:    utils.Ptr(tenantSigned.RowVersion),
	}, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, models.LeaseFullySigned, full.Status)
	assert.Equal(t, "Olive Owner", utils.Val(full.OwnerSignature))
	assert.NotNil(t, full.NextRentDue)

	p, err := e.h.Store.Properties.GetByID(e.h.Ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusRented, p.Status)

	t.Run("signed leases cannot be voided", func(t *testing.T) {
		_, err := e.leases.Void(e.h.Ctx, identity(owner), lease.ID, dtos.VoidLeaseRequest{Reason: "changed my mind"})
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)
	})

	t.Run("strangers see not found", func(t *testing.T) {
		stranger := e.h.CreateTestProfile(models.RoleTenant, "stranger")
		_, err := e.leases.Get(e.h.Ctx, identity(stranger), lease.ID)
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	listed, err := e.leases.List(e.h.Ctx, identity(tenant), utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, listed.Total)
}

func TestLeaseRequiresApprovedApplication(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationPaidUnderReview)

	_, err := e.leases.Create(e.h.Ctx, identity(owner), app.ID, dtos.CreateLeaseRequest{
		StartDate:  time.Now().AddDate(0, 1, 0),
		TermMonths: 12,
		RentDueDay: 1,
	})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
}

func TestVoidDraftLease(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	lease := e.h.CreateTestLease(app, owner.ID, models.LeaseDraft)

	_, err := e.leases.Void(e.h.Ctx, identity(tenant), lease.ID, dtos.VoidLeaseRequest{Reason: "not my call"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeInvalidTransition)

	voided, err := e.leases.Void(e.h.Ctx, identity(owner), lease.ID, dtos.VoidLeaseRequest{Reason: "terms renegotiated"})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseVoid, voided.Status)
	assert.Equal(t, "terms renegotiated", utils.Val(voided.VoidReason))
}

func TestLeaseExpiryNotices(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationApproved)
	lease := e.h.CreateTestLease(app, owner.ID, models.LeaseFullySigned)

	now := time.Now().UTC()
	_, err := e.h.Store.Leases.Mutate(e.h.Ctx, lease.ID, nil, func(l *models.Lease) (*models.AuditLog, error) {
		l.EndDate = now.Truncate(24*time.Hour).AddDate(0, 0, 30)
		return nil, nil
	})
	require.NoError(t, err)

	_, expiring, err := e.leases.SendReminders(e.h.Ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, expiring)
	assert.NotEmpty(t, e.mailer.To(tenant.Email))
	assert.NotEmpty(t, e.mailer.To(owner.Email))
}
