package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

// RouteHandler handles HTTP requests for messaging route administration
type RouteHandler struct {
	routeRepo repository.RouteRepository
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routeRepo repository.RouteRepository) *RouteHandler {
	return &RouteHandler{routeRepo: routeRepo}
}

// Create handles POST /routes - creates a new messaging route
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var route models.MessagingRoute

	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if err := route.Validate(); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	if err := h.routeRepo.Create(r.Context(), &route); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, route)
}

// List handles GET /routes - lists all routes
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routeRepo.List(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, ListRoutesResponse{Routes: routes})
}

// GetByID handles GET /routes/{id} - gets a route by ID
func (h *RouteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "route")
	if !ok {
		return
	}

	route, err := h.routeRepo.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "route", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, route)
}

// Update handles PUT /routes/{id} - replaces a route definition
func (h *RouteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "route")
	if !ok {
		return
	}

	var route models.MessagingRoute
	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}
	route.ID = id

	if err := route.Validate(); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	err := h.routeRepo.Update(r.Context(), &route)
	if errors.Is(err, repository.ErrNotFound) {
		WriteNotFoundError(w, "route", id)
		return
	}
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, route)
}

// ListRoutesResponse represents the response for listing routes
type ListRoutesResponse struct {
	Routes []*models.MessagingRoute `json:"routes"`
}
