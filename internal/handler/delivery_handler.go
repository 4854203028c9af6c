package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"covermsg/internal/models"
	"covermsg/internal/repository"
	"covermsg/internal/service"
)

// DeliveryOperations is the slice of the delivery service the handler needs
type DeliveryOperations interface {
	Enqueue(ctx context.Context, req *service.EnqueueRequest) (*service.EnqueueResult, error)
	List(ctx context.Context, filters repository.DeliveryFilters) ([]*models.Delivery, *service.PaginationInfo, error)
	Get(ctx context.Context, id int) (*models.DeliveryWithDetails, error)
	Resend(ctx context.Context, deliveryID int) (int, error)
}

// DeliveryHandler handles HTTP requests for delivery operations
type DeliveryHandler struct {
	deliveryService DeliveryOperations
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService DeliveryOperations) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
	}
}

// Enqueue handles POST /deliveries - enqueues deliveries for a template key
func (h *DeliveryHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req service.EnqueueRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	result, err := h.deliveryService.Enqueue(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, result)
}

// List handles GET /deliveries - lists deliveries with filters
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := 20
	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 {
			perPage = pp
		}
	}
	if perPage > 100 {
		perPage = 100
	}

	filters := repository.DeliveryFilters{
		Page:     page,
		PageSize: perPage,
	}

	if statusStr := query.Get("status"); statusStr != "" {
		validStatuses := map[string]models.DeliveryStatus{
			"pending":    models.DeliveryStatusPending,
			"processing": models.DeliveryStatusProcessing,
			"sent":       models.DeliveryStatusSent,
			"failed":     models.DeliveryStatusFailed,
			"retry_wait": models.DeliveryStatusRetryWait,
		}
		if status, ok := validStatuses[statusStr]; ok {
			filters.Status = &status
		} else {
			WriteValidationError(w, "invalid status: must be one of pending, processing, sent, failed, retry_wait")
			return
		}
	}

	if channelStr := query.Get("channel"); channelStr != "" {
		channel := models.Channel(channelStr)
		if !channel.IsValid() {
			WriteValidationError(w, "invalid channel: must be 'sms' or 'email'")
			return
		}
		filters.Channel = &channel
	}

	if customerStr := query.Get("customer_id"); customerStr != "" {
		customerID, err := strconv.Atoi(customerStr)
		if err != nil || customerID <= 0 {
			WriteValidationError(w, "invalid customer_id format")
			return
		}
		filters.CustomerID = &customerID
	}

	if policyStr := query.Get("policy_id"); policyStr != "" {
		policyID, err := strconv.Atoi(policyStr)
		if err != nil || policyID <= 0 {
			WriteValidationError(w, "invalid policy_id format")
			return
		}
		filters.PolicyID = &policyID
	}

	deliveries, pagination, err := h.deliveryService.List(r.Context(), filters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	response := ListDeliveriesResponse{
		Deliveries: deliveries,
		Pagination: pagination,
	}

	WriteOK(w, response)
}

// GetByID handles GET /deliveries/{id} - gets a delivery with its details
func (h *DeliveryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "delivery")
	if !ok {
		return
	}

	delivery, err := h.deliveryService.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, delivery)
}

// Resend handles POST /deliveries/{id}/resend - re-delivers previously
// rendered content as a new delivery
func (h *DeliveryHandler) Resend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "delivery")
	if !ok {
		return
	}

	resendID, err := h.deliveryService.Resend(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, ResendResponse{
		DeliveryID:         resendID,
		OriginalDeliveryID: id,
	})
}

// Request/Response types

// ListDeliveriesResponse represents the response for listing deliveries
type ListDeliveriesResponse struct {
	Deliveries []*models.Delivery      `json:"deliveries"`
	Pagination *service.PaginationInfo `json:"pagination"`
}

// ResendResponse represents the response for a resend
type ResendResponse struct {
	DeliveryID         int `json:"delivery_id"`
	OriginalDeliveryID int `json:"original_delivery_id"`
}
