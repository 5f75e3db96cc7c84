package controllers

import (
	"net/http"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type DocumentController struct {
	documents *services.DocumentService
}

func NewDocumentController(documents *services.DocumentService) *DocumentController {
	return &DocumentController{documents: documents}
}

// POST /api/v1/documents
func (c *DocumentController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.CreateDocumentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.documents.Create(r.Context(), id, req)
	respond(w, http.StatusCreated, out, err)
}

// GET /api/v1/documents?application_id=
func (c *DocumentController) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	appID, ok := queryUUID(w, r, "application_id")
	if !ok {
		return
	}
	out, err := c.documents.List(r.Context(), id, appID)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/documents/{id}
func (c *DocumentController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.documents.Get(r.Context(), id, docID)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/documents/{id}/complete
func (c *DocumentController) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.documents.Complete(r.Context(), id, docID)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/documents/{id}/download
func (c *DocumentController) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := c.documents.Download(r.Context(), id, docID)
	respond(w, http.StatusOK, out, err)
}

// DELETE /api/v1/documents/{id}
func (c *DocumentController) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := c.documents.Delete(r.Context(), id, docID); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
