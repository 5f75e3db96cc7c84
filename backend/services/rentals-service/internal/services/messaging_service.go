package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/config"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const messageEventType = "message"

type MessagingService struct {
	cfg        *config.Config
	messages   repositories.MessageRepository
	properties repositories.PropertyRepository
	profiles   repositories.ProfileRepository
	publisher  Publisher
	notifier   *NotificationService
}

func NewMessagingService(
	cfg *config.Config,
	messages repositories.MessageRepository,
	properties repositories.PropertyRepository,
	profiles repositories.ProfileRepository,
	publisher Publisher,
	notifier *NotificationService,
) *MessagingService {
	return &MessagingService{
		cfg:        cfg,
		messages:   messages,
		properties: properties,
		profiles:   profiles,
		publisher:  publisher,
		notifier:   notifier,
	}
}

// StartThread opens (or reuses) the tenant's thread with the owner of the
// property and posts the first message.
func (s *MessagingService) StartThread(ctx context.Context, caller *middleware.Identity, req dtos.StartThreadRequest) (*dtos.ThreadResponse, error) {
	body, err := cleanBody(req.Body)
	if err != nil {
		return nil, err
	}
	prop, err := s.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, utils.Internal("Failed to load property", err)
	}
	if prop == nil || prop.DeletedAt != nil {
		return nil, utils.NotFound("Property not found")
	}
	if prop.OwnerID == caller.UserID {
		return nil, utils.BadRequest("You cannot message yourself about your own listing", nil)
	}

	candidate := uuid.New()
	thread, err := s.messages.GetOrCreateThread(ctx, &models.Thread{
		ID:         candidate,
		PropertyID: prop.ID,
		TenantID:   caller.UserID,
		OwnerID:    prop.OwnerID,
		Subject:    strings.TrimSpace(req.Subject),
	})
	if err != nil {
		return nil, utils.Internal("Failed to open thread", err)
	}
	isNew := thread.ID == candidate

	msg, err := s.post(ctx, thread, caller.UserID, body)
	if err != nil {
		return nil, err
	}

	if isNew {
		if owner, err := s.profiles.GetByID(ctx, prop.OwnerID); err == nil && owner != nil {
			s.notifier.Notify(ctx, Notice{
				ToName:     owner.FullName,
				ToEmail:    owner.Email,
				Subject:    fmt.Sprintf(constants.EmailSubjectNewMessage, prop.Title),
				Heading:    thread.Subject,
				Paragraphs: []string{body},
				LinkURL:    s.cfg.AppUrl + "/messages/" + thread.ID.String(),
				LinkText:   "Reply",
			})
		}
	}

	summary := shared_dtos.NewPropertySummary(*prop)
	out := &dtos.ThreadResponse{Thread: *thread, Property: &summary, FirstMessage: msg}
	if cp, err := s.profiles.GetByID(ctx, prop.OwnerID); err == nil && cp != nil {
		v := shared_dtos.NewProfileFromModel(*cp)
		out.Counterpart = &v
	}
	return out, nil
}

func (s *MessagingService) ListThreads(ctx context.Context, caller *middleware.Identity, page utils.Pagination) (utils.PageResponse[dtos.ThreadResponse], error) {
	threads, total, err := s.messages.ListThreads(ctx, caller.UserID, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[dtos.ThreadResponse]{}, utils.Internal("Failed to list threads", err)
	}

	ids := make([]uuid.UUID, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.PropertyID)
	}
	props := map[uuid.UUID]*models.Property{}
	if len(ids) > 0 {
		rows, err := s.properties.ListByIDs(ctx, ids)
		if err != nil {
			utils.Logger.WithError(err).Warn("Failed to load thread properties")
		}
		for _, p := range rows {
			props[p.ID] = p
		}
	}

	items := make([]dtos.ThreadResponse, 0, len(threads))
	for _, t := range threads {
		item := dtos.ThreadResponse{Thread: *t}
		if p := props[t.PropertyID]; p != nil {
			summary := shared_dtos.NewPropertySummary(*p)
			item.Property = &summary
		}
		if cp, err := s.profiles.GetByID(ctx, t.Counterpart(caller.UserID)); err == nil && cp != nil {
			v := shared_dtos.NewProfileFromModel(*cp)
			item.Counterpart = &v
		}
		items = append(items, item)
	}
	return utils.NewPageResponse(items, total, page), nil
}

// ListMessages returns a page of the thread, newest first, and marks the
// counterpart's messages read.
func (s *MessagingService) ListMessages(ctx context.Context, caller *middleware.Identity, threadID uuid.UUID, page utils.Pagination) (utils.PageResponse[*models.Message], error) {
	if _, err := s.thread(ctx, caller, threadID); err != nil {
		return utils.PageResponse[*models.Message]{}, err
	}
	msgs, total, err := s.messages.ListMessages(ctx, threadID, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.Message]{}, utils.Internal("Failed to list messages", err)
	}
	if _, err := s.messages.MarkRead(ctx, threadID, caller.UserID, time.Now().UTC()); err != nil {
		utils.Logger.WithError(err).WithField("thread_id", threadID).Warn("Failed to mark messages read")
	}
	return utils.NewPageResponse(msgs, total, page), nil
}

func (s *MessagingService) PostMessage(ctx context.Context, caller *middleware.Identity, threadID uuid.UUID, req dtos.PostMessageRequest) (*models.Message, error) {
	body, err := cleanBody(req.Body)
	if err != nil {
		return nil, err
	}
	t, err := s.thread(ctx, caller, threadID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, t, caller.UserID, body)
}

func (s *MessagingService) post(ctx context.Context, t *models.Thread, senderID uuid.UUID, body string) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.New(),
		ThreadID:  t.ID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, utils.Internal("Failed to send message", err)
	}
	s.publisher.Publish([]uuid.UUID{t.TenantID, t.OwnerID}, dtos.MessageEvent{
		Type:     messageEventType,
		ThreadID: t.ID.String(),
		Message:  msg,
	})
	return msg, nil
}

// thread loads a thread the caller participates in. Admins may read any.
func (s *MessagingService) thread(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Thread, error) {
	t, err := s.messages.GetThread(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load thread", err)
	}
	if t == nil || (!t.HasParticipant(caller.UserID) && !isAdmin(caller)) {
		return nil, utils.NotFound("Thread not found")
	}
	return t, nil
}

func cleanBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", utils.ValidationFailed("body is required", nil)
	}
	if utf8.RuneCountInString(body) > constants.MaxMessageBodyChars {
		return "", utils.ValidationFailed(fmt.Sprintf("body must be at most %d characters", constants.MaxMessageBodyChars), nil)
	}
	return body, nil
}
