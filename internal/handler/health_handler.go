package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Check handles GET /health - reports service and database health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, status, response)
}
