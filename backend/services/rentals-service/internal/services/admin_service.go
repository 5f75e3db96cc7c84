package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type AdminService struct {
	apps        repositories.ApplicationRepository
	properties  repositories.PropertyRepository
	payments    repositories.PaymentRepository
	maintenance repositories.MaintenanceRequestRepository
	audit       repositories.AuditLogRepository
	notifier    *NotificationService
}

func NewAdminService(
	apps repositories.ApplicationRepository,
	properties repositories.PropertyRepository,
	payments repositories.PaymentRepository,
	maintenance repositories.MaintenanceRequestRepository,
	audit repositories.AuditLogRepository,
	notifier *NotificationService,
) *AdminService {
	return &AdminService{
		apps:        apps,
		properties:  properties,
		payments:    payments,
		maintenance: maintenance,
		audit:       audit,
		notifier:    notifier,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*dtos.AdminStatsResponse, error) {
	apps, err := s.apps.CountByStatus(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to count applications", err)
	}
	props, err := s.properties.CountByStatus(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to count properties", err)
	}
	paid, err := s.payments.SumSucceededCents(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to total payments", err)
	}
	open, err := s.maintenance.CountOpen(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to count maintenance requests", err)
	}
	return &dtos.AdminStatsResponse{
		ApplicationsByStatus:  apps,
		PropertiesByStatus:    props,
		PaymentsSucceededCent: paid,
		OpenMaintenance:       open,
	}, nil
}

// AuditLogs pages the whole log, or returns every entry for one target
// when targetID is set.
func (s *AdminService) AuditLogs(ctx context.Context, targetType models.AuditTargetType, targetID *uuid.UUID, page utils.Pagination) (utils.PageResponse[*models.AuditLog], error) {
	if targetID != nil {
		if targetType == "" {
			return utils.PageResponse[*models.AuditLog]{}, utils.ValidationFailed("target_type is required with target_id", nil)
		}
		rows, err := s.audit.ListByTarget(ctx, targetType, *targetID)
		if err != nil {
			return utils.PageResponse[*models.AuditLog]{}, utils.Internal("Failed to list audit logs", err)
		}
		if rows == nil {
			rows = []*models.AuditLog{}
		}
		return utils.NewPageResponse(rows, len(rows), utils.Pagination{Page: 1, PageSize: len(rows)}), nil
	}
	rows, total, err := s.audit.List(ctx, targetType, page.Limit(), page.Offset())
	if err != nil {
		return utils.PageResponse[*models.AuditLog]{}, utils.Internal("Failed to list audit logs", err)
	}
	return utils.NewPageResponse(rows, total, page), nil
}

// SendEmail backs the send-email function.
func (s *AdminService) SendEmail(ctx context.Context, req dtos.SendEmailRequest) error {
	return s.notifier.SendRaw(ctx, req)
}
