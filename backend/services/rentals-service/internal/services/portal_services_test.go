package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

var firstPage = utils.Pagination{Page: 1, PageSize: 20}

func TestSavedProperties(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")

	res, err := e.saved.Save(e.h.Ctx, identity(tenant), prop.ID)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.True(t, res.Created)

	res, err = e.saved.Save(e.h.Ctx, identity(tenant), prop.ID)
	require.NoError(t, err)
	assert.False(t, res.Created)

	list, err := e.saved.List(e.h.Ctx, identity(tenant), firstPage)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, prop.ID.String(), list.Items[0].ID)

	_, err = e.saved.Save(e.h.Ctx, identity(tenant), uuid.New())
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)

	res, err = e.saved.Remove(e.h.Ctx, identity(tenant), prop.ID)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	_, err = e.saved.Remove(e.h.Ctx, identity(tenant), prop.ID)
	require.NoError(t, err)

	list, err = e.saved.List(e.h.Ctx, identity(tenant), firstPage)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestDocumentUploads(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationSubmitted)

	upload, err := e.documents.Create(e.h.Ctx, identity(tenant), dtos.CreateDocumentRequest{
		Kind:          models.DocumentIncomeProof,
		FileName:      "../../paystub.pdf",
		ContentType:   "Application/PDF",
		SizeBytes:     120_000,
		ApplicationID: &app.ID,
	})
	require.NoError(t, err)
	doc := upload.Document
	assert.Equal(t, "paystub.pdf", doc.FileName)
	assert.Equal(t, models.DocumentPending, doc.Status)
	assert.True(t, strings.HasPrefix(doc.StoragePath, tenant.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(doc.StoragePath, ".pdf"))
	assert.Contains(t, upload.UploadURL, doc.StoragePath)

	t.Run("download waits for the upload", func(t *testing.T) {
		_, err := e.documents.Download(e.h.Ctx, identity(tenant), doc.ID)
		requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	})

	t.Run("only the uploader completes", func(t *testing.T) {
		_, err := e.documents.Complete(e.h.Ctx, identity(owner), doc.ID)
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	done, err := e.documents.Complete(e.h.Ctx, identity(tenant), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentUploaded, done.Status)

	dl, err := e.documents.Download(e.h.Ctx, identity(owner), doc.ID)
	require.NoError(t, err, "the owner reviewing the application can read its documents")
	assert.Contains(t, dl.URL, doc.StoragePath)

	stranger := e.h.CreateTestProfile(models.RoleOwner, "stranger")
	_, err = e.documents.Get(e.h.Ctx, identity(stranger), doc.ID)
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)

	attached, err := e.documents.List(e.h.Ctx, identity(owner), &app.ID)
	require.NoError(t, err)
	assert.Len(t, attached, 1)

	require.NoError(t, e.documents.Delete(e.h.Ctx, identity(tenant), doc.ID))
	assert.Equal(t, []string{doc.StoragePath}, e.storage.removed)
	mine, err := e.documents.List(e.h.Ctx, identity(tenant), nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestDocumentValidation(t *testing.T) {
	e := newTestEnv(t)
	_, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	other := e.h.CreateTestProfile(models.RoleTenant, "other")
	app := e.h.CreateTestApplication(prop.ID, other.ID, models.ApplicationSubmitted)

	base := dtos.CreateDocumentRequest{Kind: models.DocumentIDProof, FileName: "id.png", ContentType: "image/png", SizeBytes: 1000}

	bad := base
	bad.ContentType = "application/zip"
	_, err := e.documents.Create(e.h.Ctx, identity(tenant), bad)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	big := base
	big.SizeBytes = models.MaxDocumentBytes + 1
	_, err = e.documents.Create(e.h.Ctx, identity(tenant), big)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	foreign := base
	foreign.ApplicationID = &app.ID
	_, err = e.documents.Create(e.h.Ctx, identity(tenant), foreign)
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)

	e.storage.err = errors.New("storage down")
	_, err = e.documents.Create(e.h.Ctx, identity(tenant), base)
	requireAppError(t, err, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure)
	docs, err := e.documents.List(e.h.Ctx, identity(tenant), nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "a failed upload leaves no row behind")
}

func TestInquiries(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()

	general, err := e.inquiries.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
		Name:    "Walk In",
		Email:   " Visitor@Example.com ",
		Message: "Do you manage properties in Tampa?",
	}, "198.51.100.20")
	require.NoError(t, err)
	assert.Equal(t, "visitor@example.com", general.Email)
	assert.Nil(t, general.UserID)
	assert.Len(t, e.mailer.To(e.cfg.AdminInboxEmail), 1)

	about, err := e.inquiries.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
		PropertyID: &prop.ID,
		Name:       "Walk In",
		Email:      "visitor@example.com",
		Phone:      utils.Ptr("305-555-0199"),
		Message:    "Is the unit still available?",
	}, "198.51.100.20")
	require.NoError(t, err)
	assert.Equal(t, "+13055550199", utils.Val(about.Phone))
	assert.Len(t, e.mailer.To(owner.Email), 1)

	t.Run("unknown property", func(t *testing.T) {
		_, err := e.inquiries.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
			PropertyID: utils.Ptr(uuid.New()),
			Name:       "Someone",
			Email:      "someone@example.com",
			Message:    "Hello there",
		}, "198.51.100.21")
		requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	t.Run("repeat senders are throttled", func(t *testing.T) {
		for i := 2; i < constants.MaxInquiriesPerTTL; i++ {
			_, err := e.inquiries.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
				Name: "Walk In", Email: "visitor@example.com", Message: "One more question",
			}, "198.51.100.20")
			require.NoError(t, err)
		}
		_, err := e.inquiries.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
			Name: "Walk In", Email: "visitor@example.com", Message: "And another one",
		}, "198.51.100.20")
		requireAppError(t, err, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded)
	})

	t.Run("undeliverable email", func(t *testing.T) {
		svc := NewInquiryService(e.cfg, e.h.Store.Inquiries, e.h.Store.Properties, e.h.Store.Profiles, e.notifier,
			func(context.Context, string, string, bool) (bool, error) { return false, nil })
		_, err := svc.Create(e.h.Ctx, nil, dtos.CreateInquiryRequest{
			Name: "Nobody", Email: "nobody@nowhere.invalid", Message: "Hello there",
		}, "198.51.100.22")
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})

	owned, err := e.inquiries.List(e.h.Ctx, identity(owner), "", firstPage)
	require.NoError(t, err)
	assert.Equal(t, 1, owned.Total)

	updated, err := e.inquiries.SetStatus(e.h.Ctx, identity(owner), about.ID, dtos.InquiryStatusRequest{Status: models.InquiryResponded})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryResponded, updated.Status)

	_, err = e.inquiries.SetStatus(e.h.Ctx, identity(owner), general.ID, dtos.InquiryStatusRequest{Status: models.InquiryClosed})
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)

	admin := e.h.CreateTestProfile(models.RoleAdmin, "admin")
	_, err = e.inquiries.SetStatus(e.h.Ctx, identity(admin), general.ID, dtos.InquiryStatusRequest{Status: models.InquiryClosed})
	require.NoError(t, err)
}

func TestOnboardingChecklist(t *testing.T) {
	e := newTestEnv(t)
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	caller := identity(tenant)

	state, err := e.onboarding.Get(e.h.Ctx, caller)
	require.NoError(t, err)
	assert.False(t, state.Completed)
	require.NotNil(t, state.CurrentStep)
	assert.Equal(t, models.StepProfile, *state.CurrentStep)

	_, err = e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepPayoutDetails, nil)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeInvalidPayload)

	state, err = e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepProfile, nil)
	require.NoError(t, err)
	again, err := e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepProfile, nil)
	require.NoError(t, err)
	assert.Equal(t, state.RowVersion, again.RowVersion, "completing a step twice changes nothing")

	_, err = e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepPreferences, utils.Ptr(state.RowVersion-1))
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeRowVersionConflict)

	_, err = e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepPreferences, utils.Ptr(state.RowVersion))
	require.NoError(t, err)
	final, err := e.onboarding.CompleteStep(e.h.Ctx, caller, models.StepDocuments, nil)
	require.NoError(t, err)
	assert.True(t, final.Completed)
	assert.NotNil(t, final.CompletedAt)
	assert.Nil(t, final.CurrentStep)
}

func TestOnboardingFollowsRoleChange(t *testing.T) {
	e := newTestEnv(t)
	profile := e.h.CreateTestProfile(models.RoleTenant, "switcher")
	tenant := identity(profile)

	for _, step := range []models.OnboardingStep{models.StepProfile, models.StepPreferences, models.StepDocuments} {
		_, err := e.onboarding.CompleteStep(e.h.Ctx, tenant, step, nil)
		require.NoError(t, err)
	}
	done, err := e.onboarding.Get(e.h.Ctx, tenant)
	require.NoError(t, err)
	require.True(t, done.Completed)

	owner := &middleware.Identity{UserID: profile.ID, Email: profile.Email, Role: models.RoleOwner}
	state, err := e.onboarding.Get(e.h.Ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, state.Role)
	assert.False(t, state.Completed)
	assert.Nil(t, state.CompletedAt)
	assert.Equal(t, []models.OnboardingStep{models.StepProfile}, state.CompletedSteps)
	require.NotNil(t, state.CurrentStep)
	assert.Equal(t, models.StepPayoutDetails, *state.CurrentStep)

	_, err = e.onboarding.CompleteStep(e.h.Ctx, owner, models.StepPayoutDetails, nil)
	require.NoError(t, err)

	stored, err := e.h.Store.Onboarding.GetOrCreate(e.h.Ctx, profile.ID, models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, stored.Role)
	assert.Equal(t, []models.OnboardingStep{models.StepProfile, models.StepPayoutDetails}, stored.CompletedSteps)
}

func TestErrorLogs(t *testing.T) {
	e := newTestEnv(t)
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")

	entry, err := e.errorLogs.Report(e.h.Ctx, identity(tenant), dtos.ErrorReportRequest{
		Message: " TypeError: x is undefined ",
		Path:    utils.Ptr("/applications"),
	}, strings.Repeat("M", 600))
	require.NoError(t, err)
	assert.Equal(t, "TypeError: x is undefined", entry.Message)
	assert.Equal(t, models.ErrorSourceClient, entry.Source)
	assert.Len(t, utils.Val(entry.UserAgent), maxUserAgentLen)
	assert.Equal(t, tenant.ID, utils.Val(entry.UserID))

	e.errorLogs.RecordServerError(e.h.Ctx, nil, "/payments", "boom", nil)

	server, err := e.errorLogs.List(e.h.Ctx, models.ErrorSourceServer, firstPage)
	require.NoError(t, err)
	require.Equal(t, 1, server.Total)
	assert.Equal(t, "boom", server.Items[0].Message)

	_, err = e.errorLogs.List(e.h.Ctx, "browser", firstPage)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	n, err := e.errorLogs.Prune(e.h.Ctx, time.Now().Add(constants.ErrorLogRetention+time.Hour), constants.ErrorLogRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAdminStatsAndAudit(t *testing.T) {
	e := newTestEnv(t)
	owner, prop := e.listing()
	tenant := e.h.CreateTestProfile(models.RoleTenant, "tenant")
	app := e.h.CreateTestApplication(prop.ID, tenant.ID, models.ApplicationSubmitted)

	_, err := e.applications.Transition(e.h.Ctx, identity(owner), app.ID, dtos.TransitionRequest{To: "under_review"})
	require.NoError(t, err)

	stats, err := e.admin.Stats(e.h.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ApplicationsByStatus[models.ApplicationUnderReview])
	assert.Equal(t, 1, stats.PropertiesByStatus[models.PropertyStatusAvailable])
	assert.Zero(t, stats.PaymentsSucceededCent)
	assert.Zero(t, stats.OpenMaintenance)

	entries, err := e.admin.AuditLogs(e.h.Ctx, models.TargetApplication, &app.ID, firstPage)
	require.NoError(t, err)
	require.Len(t, entries.Items, 1)
	assert.Equal(t, models.AuditTransition, entries.Items[0].Action)

	_, err = e.admin.AuditLogs(e.h.Ctx, "", &app.ID, firstPage)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	err = e.admin.SendEmail(e.h.Ctx, dtos.SendEmailRequest{To: "someone@example.com", Subject: "Hi"})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	require.NoError(t, e.admin.SendEmail(e.h.Ctx, dtos.SendEmailRequest{
		To:      "someone@example.com",
		Subject: "Hi",
		Text:    utils.Ptr("<b>plain</b>"),
	}))
	sent := e.mailer.To("someone@example.com")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, "&lt;b&gt;plain&lt;/b&gt;")

	e.mailer.err = errors.New("sendgrid 500")
	err = e.admin.SendEmail(e.h.Ctx, dtos.SendEmailRequest{To: "someone@example.com", Subject: "Hi", Text: utils.Ptr("x")})
	requireAppError(t, err, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure)
}

func TestChangeRole(t *testing.T) {
	e := newTestEnv(t)
	admin := e.h.CreateTestProfile(models.RoleAdmin, "admin")
	user := e.h.CreateTestProfile(models.RoleTenant, "user")

	_, err := e.profiles.ChangeRole(e.h.Ctx, identity(admin), admin.ID, dtos.ChangeRoleRequest{Role: models.RoleTenant})
	requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)

	_, err = e.profiles.ChangeRole(e.h.Ctx, identity(user), admin.ID, dtos.ChangeRoleRequest{Role: models.RoleTenant})
	requireAppError(t, err, http.StatusForbidden, utils.ErrCodeForbidden)

	updated, err := e.profiles.ChangeRole(e.h.Ctx, identity(admin), user.ID, dtos.ChangeRoleRequest{Role: models.RoleOwner})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, updated.Role)
	assert.Equal(t, models.RoleOwner, e.authAdmin.roles[user.ID])
}
