package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

// TemplateHandler handles HTTP requests for messaging template administration
type TemplateHandler struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateRepo repository.TemplateRepository) *TemplateHandler {
	return &TemplateHandler{templateRepo: templateRepo}
}

// Create handles POST /templates - creates a new messaging template
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var template models.MessagingTemplate

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

	if err := h.templateRepo.Create(r.Context(), &template); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, template)
}

// List handles GET /templates - lists templates with filters
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := repository.TemplateFilters{}

	if key := query.Get("template_key"); key != "" {
		filters.TemplateKey = &key
	}
	if channelStr := query.Get("channel"); channelStr != "" {
		channel := models.Channel(channelStr)
		if !channel.IsValid() {
			WriteValidationError(w, "invalid channel: must be 'sms' or 'email'")
			return
		}
		filters.Channel = &channel
	}
	if language := query.Get("language"); language != "" {
		filters.Language = &language
	}

	templates, err := h.templateRepo.List(r.Context(), filters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, ListTemplatesResponse{Templates: templates})
}

// GetByID handles GET /templates/{id} - gets a template by ID
func (h *TemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}

	template, err := h.templateRepo.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "template", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, template)
}

// Update handles PUT /templates/{id} - replaces a template definition
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}

	var template models.MessagingTemplate
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

	err := h.templateRepo.Update(r.Context(), &template)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "template", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, template)
}

// pathID extracts and validates the {id} path variable, writing the error
// response itself when invalid
func pathID(w http.ResponseWriter, r *http.Request, resource string) (int, bool) {
	vars := mux.Vars(r)

	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		WriteValidationError(w, "invalid "+resource+" ID format")
		return 0, false
	}
	if id <= 0 {
		WriteValidationError(w, resource+" ID must be greater than 0")
		return 0, false
	}

	return id, true
}

// ListTemplatesResponse represents the response for listing templates
type ListTemplatesResponse struct {
	Templates []*models.MessagingTemplate `json:"templates"`
}
