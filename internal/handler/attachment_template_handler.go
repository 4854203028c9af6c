package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

// AttachmentTemplateHandler handles HTTP requests for attachment template
// administration
type AttachmentTemplateHandler struct {
	repo repository.AttachmentTemplateRepository
}

// NewAttachmentTemplateHandler creates a new attachment template handler
func NewAttachmentTemplateHandler(repo repository.AttachmentTemplateRepository) *AttachmentTemplateHandler {
	return &AttachmentTemplateHandler{repo: repo}
}

// Create handles POST /attachment-templates
func (h *AttachmentTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var template models.AttachmentTemplate

	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if err := template.Validate(); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	if err := h.repo.Create(r.Context(), &template); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, template)
}

// List handles GET /attachment-templates
func (h *AttachmentTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repo.List(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, ListAttachmentTemplatesResponse{AttachmentTemplates: templates})
}

// GetByID handles GET /attachment-templates/{id}
func (h *AttachmentTemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "attachment template")
	if !ok {
		return
	}

	template, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "attachment template", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, template)
}

// Update handles PUT /attachment-templates/{id}
func (h *AttachmentTemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "attachment template")
	if !ok {
		return
	}

	var template models.AttachmentTemplate
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}
	template.ID = id

	if err := template.Validate(); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	err := h.repo.Update(r.Context(), &template)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "attachment template", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, template)
}

// ListAttachmentTemplatesResponse represents the response for listing
// attachment templates
type ListAttachmentTemplatesResponse struct {
	AttachmentTemplates []*models.AttachmentTemplate `json:"attachment_templates"`
}
