package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const maxUserAgentLen = 512

// ErrorLogService stores client error reports and server failures.
type ErrorLogService struct {
	logs repositories.ErrorLogRepository
}

var _ middleware.ServerErrorRecorder = (*ErrorLogService)(nil)

func NewErrorLogService(logs repositories.ErrorLogRepository) *ErrorLogService {
	return &ErrorLogService{logs: logs}
}

// Report stores a client-side error. caller may be nil.
func (s *ErrorLogService) Report(ctx context.Context, caller *middleware.Identity, req dtos.ErrorReportRequest, userAgent string) (*models.ErrorLog, error) {
	e := &models.ErrorLog{
		ID:      uuid.New(),
		Source:  models.ErrorSourceClient,
		Message: strings.TrimSpace(req.Message),
		Stack:   req.Stack,
		Path:    utils.TrimPtr(req.Path),
		Context: req.Context,
	}
	if caller != nil {
		id := caller.UserID
		e.UserID = &id
	}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		if len(ua) > maxUserAgentLen {
			ua = ua[:maxUserAgentLen]
		}
		e.UserAgent = &ua
	}
	if err := s.logs.Create(ctx, e); err != nil {
		return nil, utils.Internal("Failed to store error report", err)
	}
	return e, nil
}

// RecordServerError never fails; the request it describes already has.
func (s *ErrorLogService) RecordServerError(ctx context.Context, userID *uuid.UUID, path, message string, stack *string) {
	e := &models.ErrorLog{
		ID:      uuid.New(),
		UserID:  userID,
		Source:  models.ErrorSourceServer,
		Message: message,
		Stack:   stack,
		Path:    &path,
	}
	// the request context may already be canceled
	if err := s.logs.Create(context.WithoutCancel(ctx), e); err != nil {
		utils.Logger.WithError(err).Error("Failed to record server error")
	}
}

func (s *ErrorLogService) List(ctx context.Context, source models.ErrorSource, page utils.Pagination) (utils.PageResponse[*models.ErrorLog], error) {
	if source != "" && source != models.ErrorSourceClient && source != models.ErrorSourceServer {
		return utils.PageResponse[*models.ErrorLog]{}, utils.ValidationFailed("source must be client or server", nil)
	}
	rows, total, err := s.logs.List(ctx, source, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.ErrorLog]{}, utils.Internal("Failed to list error logs", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

// Prune deletes entries older than retention.
func (s *ErrorLogService) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	n, err := s.logs.DeleteOlderThan(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		utils.Logger.Infof("Pruned %d error log entries", n)
	}
	return n, nil
}
