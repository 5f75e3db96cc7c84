package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// EmailValidator is utils.ValidateEmail; tests swap it to avoid DNS.
type EmailValidator func(ctx context.Context, apiKey, email string, validateWithSendGrid bool) (bool, error)

type InquiryService struct {
	cfg           *config.Config
	inquiries     repositories.InquiryRepository
	properties    repositories.PropertyRepository
	profiles      repositories.ProfileRepository
	notifier      *NotificationService
	validateEmail EmailValidator
}

func NewInquiryService(
	cfg *config.Config,
	inquiries repositories.InquiryRepository,
	properties repositories.PropertyRepository,
	profiles repositories.ProfileRepository,
	notifier *NotificationService,
	validateEmail EmailValidator,
) *InquiryService {
	if validateEmail == nil {
		validateEmail = utils.ValidateEmail
	}
	return &InquiryService{
		cfg:           cfg,
		inquiries:     inquiries,
		properties:    properties,
		profiles:      profiles,
		notifier:      notifier,
		validateEmail: validateEmail,
	}
}

// Create stores a public contact-form submission and emails the property
// owner, or the admin inbox for general inquiries. caller may be nil.
func (s *InquiryService) Create(ctx context.Context, caller *middleware.Identity, req dtos.CreateInquiryRequest, clientIP string) (*models.Inquiry, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ok, err := s.validateEmail(ctx, s.cfg.SendGridAPIKey, email, s.cfg.LDFlag_ValidateEmailWithSendGrid)
	if err != nil {
		utils.Logger.WithError(err).Warn("Email deliverability check failed; falling back to syntax")
		ok = utils.IsValidEmailSyntax(email)
	}
	if !ok {
		return nil, utils.ValidationFailed("email must be a deliverable email address", utils.ErrInvalidEmail)
	}

	var phone *string
	if raw := utils.TrimPtr(req.Phone); raw != nil {
		n := utils.NormalizePhone(*raw)
		if !utils.IsE164(n) {
			return nil, utils.ValidationFailed("phone must be a valid phone number", utils.ErrInvalidPhone)
		}
		phone = &n
	}

	var prop *models.Property
	if req.PropertyID != nil {
		prop, err = s.properties.GetByID(ctx, *req.PropertyID)
		if err != nil {
			return nil, utils.Internal("Failed to load property", err)
		}
		if prop == nil || prop.DeletedAt != nil {
			return nil, utils.NotFound("Property not found")
		}
	}

	recent, err := s.inquiries.CountRecentFromEmail(ctx, email, time.Now().Add(-constants.InquiryDuplicateTTL))
	if err != nil {
		return nil, utils.Internal("Failed to check recent inquiries", err)
	}
	if recent >= constants.MaxInquiriesPerTTL {
		return nil, utils.NewAppError(http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded,
			"Too many inquiries from this address, please try again later", utils.ErrRateLimitExceeded)
	}

	inq := &models.Inquiry{
		ID:         uuid.New(),
		PropertyID: req.PropertyID,
		Name:       strings.TrimSpace(req.Name),
		Email:      email,
		Phone:      phone,
		Message:    strings.TrimSpace(req.Message),
		Status:     models.InquiryNew,
		ClientIP:   clientIP,
	}
	if caller != nil {
		uid := caller.UserID
		inq.UserID = &uid
	}
	if err := s.inquiries.Create(ctx, inq); err != nil {
		return nil, utils.Internal("Failed to save inquiry", err)
	}
	utils.Logger.WithField("inquiry_id", inq.ID).Info("Inquiry received")

	n := Notice{
		Subject: fmt.Sprintf(constants.EmailSubjectInquiry, inq.Name),
		Heading: "New inquiry",
		Paragraphs: []string{
			fmt.Sprintf("%s <%s> wrote:", inq.Name, inq.Email),
			inq.Message,
		},
	}
	if phone != nil {
		n.Paragraphs = append(n.Paragraphs, "Phone: "+*phone)
	}
	if prop != nil {
		n.Paragraphs = append([]string{"About: " + prop.Title}, n.Paragraphs...)
		if owner, err := s.profiles.GetByID(ctx, prop.OwnerID); err == nil && owner != nil {
			n.ToName, n.ToEmail = owner.FullName, owner.Email
			s.notifier.Notify(ctx, n)
			return inq, nil
		}
	}
	s.notifier.NotifyAdmins(ctx, n)
	return inq, nil
}

// List scopes owners to inquiries about their properties.
func (s *InquiryService) List(ctx context.Context, caller *middleware.Identity, status models.InquiryStatus, page utils.Pagination) (utils.PageResponse[*models.Inquiry], error) {
	if status != "" && !status.Valid() {
		return utils.PageResponse[*models.Inquiry]{}, utils.ValidationFailed("unknown inquiry status "+string(status), nil)
	}
	var ownerID *uuid.UUID
	if !isAdmin(caller) {
		id := caller.UserID
		ownerID = &id
	}
	rows, total, err := s.inquiries.List(ctx, ownerID, status, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.Inquiry]{}, utils.Internal("Failed to list inquiries", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

func (s *InquiryService) SetStatus(ctx context.Context, caller *middleware.Identity, id uuid.UUID, req dtos.InquiryStatusRequest) (*models.Inquiry, error) {
	if !req.Status.Valid() {
		return nil, utils.ValidationFailed("status must be new, responded or closed", nil)
	}
	inq, err := s.inquiries.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load inquiry", err)
	}
	if inq == nil {
		return nil, utils.NotFound("Inquiry not found")
	}
	if !isAdmin(caller) {
		allowed := false
		if inq.PropertyID != nil {
			p, err := s.properties.GetByID(ctx, *inq.PropertyID)
			allowed = err == nil && p != nil && p.OwnerID == caller.UserID
		}
		if !allowed {
			return nil, utils.NotFound("Inquiry not found")
		}
	}
	if err := s.inquiries.SetStatus(ctx, id, req.Status); err != nil {
		return nil, utils.Internal("Failed to update inquiry", err)
	}
	inq.Status = req.Status
	inq.UpdatedAt = time.Now().UTC()
	return inq, nil
}
