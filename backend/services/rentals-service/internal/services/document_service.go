package services

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-middleware"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type DocumentService struct {
	documents  repositories.DocumentRepository
	apps       repositories.ApplicationRepository
	leases     repositories.LeaseRepository
	properties repositories.PropertyRepository
	storage    ObjectStorage
}

func NewDocumentService(
	documents repositories.DocumentRepository,
	apps repositories.ApplicationRepository,
	leases repositories.LeaseRepository,
	properties repositories.PropertyRepository,
	storage ObjectStorage,
) *DocumentService {
	return &DocumentService{
		documents:  documents,
		apps:       apps,
		leases:     leases,
		properties: properties,
		storage:    storage,
	}
}

// Create records a pending document and returns a signed URL the client
// uploads the bytes to directly.
func (s *DocumentService) Create(ctx context.Context, caller *middleware.Identity, req dtos.CreateDocumentRequest) (*dtos.DocumentUploadResponse, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := models.AllowedDocumentTypes[contentType]
	if !ok {
		return nil, utils.ValidationFailed("content_type must be PDF, JPEG, PNG or HEIC", nil)
	}
	if req.SizeBytes > models.MaxDocumentBytes {
		return nil, utils.ValidationFailed("documents must be 10 MiB or smaller", nil)
	}
	if req.ApplicationID != nil {
		app, err := s.apps.GetByID(ctx, *req.ApplicationID)
		if err != nil {
			return nil, utils.Internal("Failed to load application", err)
		}
		if app == nil || app.TenantID != caller.UserID {
			return nil, utils.NotFound("Application not found")
		}
	}
	if req.LeaseID != nil {
		lease, err := s.leases.GetByID(ctx, *req.LeaseID)
		if err != nil {
			return nil, utils.Internal("Failed to load lease", err)
		}
		if lease == nil || (lease.TenantID != caller.UserID && lease.OwnerID != caller.UserID) {
			return nil, utils.NotFound("Lease not found")
		}
	}

	doc := &models.Document{
		ID:            uuid.New(),
		UserID:        caller.UserID,
		ApplicationID: req.ApplicationID,
		LeaseID:       req.LeaseID,
		Kind:          req.Kind,
		FileName:      path.Base(strings.TrimSpace(req.FileName)),
		ContentType:   contentType,
		SizeBytes:     req.SizeBytes,
		Status:        models.DocumentPending,
	}
	doc.StoragePath = caller.UserID.String() + "/" + doc.ID.String() + ext

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, utils.Internal("Failed to create document", err)
	}
	url, err := s.storage.SignedUploadURL(ctx, doc.StoragePath)
	if err != nil {
		if derr := s.documents.Delete(ctx, doc.ID); derr != nil {
			utils.Logger.WithError(derr).WithField("document_id", doc.ID).Warn("Failed to clean up document row")
		}
		return nil, utils.ExternalFailure("Failed to prepare upload", err)
	}
	return &dtos.DocumentUploadResponse{
		Document:  doc,
		UploadURL: url,
		ExpiresAt: time.Now().UTC().Add(constants.SignedUploadURLTTL),
	}, nil
}

// Complete marks the upload finished. Only the uploader may call it.
func (s *DocumentService) Complete(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Document, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != caller.UserID {
		return nil, utils.NotFound("Document not found")
	}
	if doc.Status == models.DocumentUploaded {
		return doc, nil
	}
	if err := s.documents.SetStatus(ctx, id, models.DocumentUploaded, doc.SizeBytes); err != nil {
		return nil, utils.Internal("Failed to update document", err)
	}
	doc.Status = models.DocumentUploaded
	return doc, nil
}

func (s *DocumentService) Download(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*dtos.DocumentDownloadResponse, error) {
	doc, err := s.readable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocumentUploaded {
		return nil, utils.Conflict("Document upload has not completed", nil)
	}
	url, err := s.storage.SignedDownloadURL(ctx, doc.StoragePath, constants.SignedDownloadURLTTL)
	if err != nil {
		return nil, utils.ExternalFailure("Failed to sign download", err)
	}
	return &dtos.DocumentDownloadResponse{
		URL:       url,
		ExpiresAt: time.Now().UTC().Add(constants.SignedDownloadURLTTL),
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Document, error) {
	return s.readable(ctx, caller, id)
}

// List returns the caller's uploads, or the documents attached to an
// application the caller can see.
func (s *DocumentService) List(ctx context.Context, caller *middleware.Identity, applicationID *uuid.UUID) ([]*models.Document, error) {
	var (
		docs []*models.Document
		err  error
	)
	if applicationID != nil {
		app, aerr := s.apps.GetByID(ctx, *applicationID)
		if aerr != nil {
			return nil, utils.Internal("Failed to load application", aerr)
		}
		if app == nil || !s.canSeeApplication(ctx, caller, app) {
			return nil, utils.NotFound("Application not found")
		}
		docs, err = s.documents.ListByApplication(ctx, *applicationID)
	} else {
		docs, err = s.documents.ListByUser(ctx, caller.UserID)
	}
	if err != nil {
		return nil, utils.Internal("Failed to list documents", err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return docs, nil
}

// Delete removes the stored object, then the row.
func (s *DocumentService) Delete(ctx context.Context, caller *middleware.Identity, id uuid.UUID) error {
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if doc.UserID != caller.UserID && !isAdmin(caller) {
		return utils.NotFound("Document not found")
	}
	if doc.Status == models.DocumentUploaded {
		if err := s.storage.Remove(ctx, doc.StoragePath); err != nil {
			return utils.ExternalFailure("Failed to delete stored file", err)
		}
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return utils.Internal("Failed to delete document", err)
	}
	return nil
}

// ------------------------------------------------------------------
// internals
// ------------------------------------------------------------------

func (s *DocumentService) get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, utils.Internal("Failed to load document", err)
	}
	if doc == nil {
		return nil, utils.NotFound("Document not found")
	}
	return doc, nil
}

// readable allows the uploader, admins, and the reviewer of the linked
// application or lease.
func (s *DocumentService) readable(ctx context.Context, caller *middleware.Identity, id uuid.UUID) (*models.Document, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID == caller.UserID || isAdmin(caller) {
		return doc, nil
	}
	if doc.ApplicationID != nil {
		if app, err := s.apps.GetByID(ctx, *doc.ApplicationID); err == nil && app != nil && s.canSeeApplication(ctx, caller, app) {
			return doc, nil
		}
	}
	if doc.LeaseID != nil {
		if l, err := s.leases.GetByID(ctx, *doc.LeaseID); err == nil && l != nil &&
			(l.OwnerID == caller.UserID || l.TenantID == caller.UserID) {
			return doc, nil
		}
	}
	return nil, utils.NotFound("Document not found")
}

func (s *DocumentService) canSeeApplication(ctx context.Context, caller *middleware.Identity, app *models.Application) bool {
	if app.TenantID == caller.UserID || isAdmin(caller) {
		return true
	}
	p, err := s.properties.GetByID(ctx, app.PropertyID)
	return err == nil && p != nil && p.OwnerID == caller.UserID
}
