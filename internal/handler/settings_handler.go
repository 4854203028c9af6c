package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"covermsg/internal/models"
	"covermsg/internal/repository"
	"covermsg/internal/settings"
)

// SettingsHandler handles HTTP requests for system settings
type SettingsHandler struct {
	cache *settings.Cache
	repo  repository.SettingsRepository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(cache *settings.Cache, repo repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{
		cache: cache,
		repo:  repo,
	}
}

// List handles GET /settings - returns all setting rows with audit fields.
// Reads go straight to the database so operators always see current values,
// not a cached snapshot.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.GetAll(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, SettingsResponse{Settings: rows})
}

// Update handles PATCH /settings - applies a partial settings update
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if len(req.Values) == 0 {
		WriteValidationError(w, "values cannot be empty")
		return
	}

	actorID := r.Header.Get("X-Actor-Id")
	if actorID == "" {
		actorID = "unknown"
	}

	// Validation failures are the caller's to fix; anything the cache
	// returns past this point is an infrastructure fault
	if err := settings.ValidatePatch(req.Values); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	if err := h.cache.Update(r.Context(), req.Values, actorID); err != nil {
		HandleServiceError(w, err)
		return
	}

	rows, err := h.repo.GetAll(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, SettingsResponse{Settings: rows})
}

// Request/Response types

// UpdateSettingsRequest represents a partial settings update
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values"`
}

// SettingsResponse represents the settings rows returned to operators
type SettingsResponse struct {
	Settings []*models.SystemSetting `json:"settings"`
}
