package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"covermsg/internal/models"
	"covermsg/internal/repository"
	"covermsg/internal/settings"
)

// Error texts for deliveries created without a usable recipient. Kept as
// constants because support tooling matches on them.
const (
	errPhoneNotSet = "Phone number not set for customer"
	errEmailNotSet = "Email not set for customer"
)

// DeliveryService handles enqueue, list and resend of deliveries
type DeliveryService struct {
	deliveryRepo   repository.DeliveryRepository
	attachmentRepo repository.AttachmentRepository
	customerRepo   repository.CustomerRepository
	routeRepo      repository.RouteRepository
	settings       *settings.Cache
	logger         zerolog.Logger
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	attachmentRepo repository.AttachmentRepository,
	customerRepo repository.CustomerRepository,
	routeRepo repository.RouteRepository,
	settingsCache *settings.Cache,
	logger zerolog.Logger,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo:   deliveryRepo,
		attachmentRepo: attachmentRepo,
		customerRepo:   customerRepo,
		routeRepo:      routeRepo,
		settings:       settingsCache,
		logger:         logger.With().Str("component", "delivery_service").Logger(),
	}
}

// EnqueueRequest represents a request to deliver a template to a customer
type EnqueueRequest struct {
	TemplateKey            string                 `json:"template_key"`
	CustomerID             int                    `json:"customer_id"`
	PolicyID               *int                   `json:"policy_id,omitempty"`
	PlaceholderValues      map[string]interface{} `json:"placeholder_values"`
	RequestedLanguage      *string                `json:"requested_language,omitempty"`
	CorrelationID          *string                `json:"correlation_id,omitempty"`
	DynamicAttachmentSpecs models.AttachmentSpecs `json:"dynamic_attachment_specs,omitempty"`
}

// Validate validates the enqueue request
func (r *EnqueueRequest) Validate() error {
	if r.TemplateKey == "" {
		return fmt.Errorf("template_key is required")
	}
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer_id must be greater than 0")
	}
	for _, spec := range r.DynamicAttachmentSpecs {
		if spec.AttachmentTemplateID <= 0 {
			return fmt.Errorf("attachment_template_id must be greater than 0")
		}
	}
	return nil
}

// EnqueueResult represents the outcome of an enqueue call
type EnqueueResult struct {
	CreatedDeliveryIDs []int  `json:"created_delivery_ids"`
	CorrelationID      string `json:"correlation_id"`
}

// Enqueue creates one delivery row per channel enabled by the template's
// route. No content is rendered here; rendering is deferred to the worker so
// template and settings changes between enqueue and send are honored.
func (s *DeliveryService) Enqueue(ctx context.Context, req *EnqueueRequest) (*EnqueueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	route, err := s.routeRepo.GetByTemplateKey(ctx, req.TemplateKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ConfigurationError{Message: fmt.Sprintf("no route configured for template key %q", req.TemplateKey)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up route: %w", err)
	}
	if !route.IsActive {
		return nil, &ConfigurationError{Message: fmt.Sprintf("route for template key %q is disabled", req.TemplateKey)}
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "customer", ID: req.CustomerID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	requestedLanguage := resolveLanguage(req.RequestedLanguage, customer.PreferredLanguage, snapshot.DefaultLanguage)

	correlationID := uuid.NewString()
	if req.CorrelationID != nil && *req.CorrelationID != "" {
		correlationID = *req.CorrelationID
	}

	result := &EnqueueResult{CorrelationID: correlationID}

	for _, channel := range route.EnabledChannels() {
		delivery := &models.Delivery{
			CorrelationID:          correlationID,
			Channel:                channel,
			TemplateKey:            req.TemplateKey,
			RequestedLanguage:      &requestedLanguage,
			CustomerID:             customer.ID,
			PolicyID:               req.PolicyID,
			PlaceholderValues:      req.PlaceholderValues,
			DynamicAttachmentSpecs: req.DynamicAttachmentSpecs,
			MaxAttempts:            snapshot.MaxAttemptsFor(channel),
		}

		recipient := customer.RecipientFor(channel)
		if recipient == "" {
			// Permanent, non-retryable condition: the row is created
			// directly as failed and never enters the pending pipeline.
			delivery.Status = models.DeliveryStatusFailed
			lastError := errPhoneNotSet
			if channel == models.ChannelEmail {
				lastError = errEmailNotSet
			}
			delivery.LastError = &lastError
		} else {
			delivery.Status = models.DeliveryStatusPending
			switch channel {
			case models.ChannelSMS:
				delivery.RecipientPhone = &recipient
			case models.ChannelEmail:
				delivery.RecipientEmail = &recipient
			}
		}

		if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
			return nil, fmt.Errorf("failed to create %s delivery: %w", channel, err)
		}

		s.logger.Info().
			Int("delivery_id", delivery.ID).
			Str("channel", string(channel)).
			Str("template_key", req.TemplateKey).
			Str("status", string(delivery.Status)).
			Str("correlation_id", correlationID).
			Msg("delivery enqueued")

		result.CreatedDeliveryIDs = append(result.CreatedDeliveryIDs, delivery.ID)
	}

	return result, nil
}

// List retrieves deliveries matching the given filters
func (s *DeliveryService) List(ctx context.Context, filters repository.DeliveryFilters) ([]*models.Delivery, *PaginationInfo, error) {
	deliveries, total, err := s.deliveryRepo.List(ctx, filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list deliveries: %w", err)
	}

	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &PaginationInfo{
		Page:       filters.Page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	return deliveries, pagination, nil
}

// Get retrieves a delivery with its customer and attachments
func (s *DeliveryService) Get(ctx context.Context, id int) (*models.DeliveryWithDetails, error) {
	delivery, err := s.deliveryRepo.GetWithDetails(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "delivery", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return delivery, nil
}

// Resend creates a new pending delivery reusing the original's rendered
// content verbatim. Content is never re-rendered, so support staff resend
// exactly the wording that was previously approved and sent. Attachment rows
// are duplicated pointing at the same storage paths; no file is copied.
func (s *DeliveryService) Resend(ctx context.Context, deliveryID int) (int, error) {
	original, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, &NotFoundError{Resource: "delivery", ID: deliveryID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load original delivery: %w", err)
	}

	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read settings: %w", err)
	}

	resend := &models.Delivery{
		CorrelationID:      uuid.NewString(),
		Channel:            original.Channel,
		TemplateKey:        original.TemplateKey,
		RequestedLanguage:  original.RequestedLanguage,
		UsedLanguage:       original.UsedLanguage,
		CustomerID:         original.CustomerID,
		PolicyID:           original.PolicyID,
		RecipientPhone:     original.RecipientPhone,
		RecipientEmail:     original.RecipientEmail,
		RenderedSubject:    original.RenderedSubject,
		RenderedBody:       original.RenderedBody,
		RenderedTextBody:   original.RenderedTextBody,
		PlaceholderValues:  original.PlaceholderValues,
		Status:             models.DeliveryStatusPending,
		MaxAttempts:        snapshot.MaxAttemptsFor(original.Channel),
		OriginalDeliveryID: &original.ID,
	}

	// An original that failed for a missing recipient carries none; pick up
	// the customer's current contact so a resend after fixing the customer
	// record can succeed.
	if original.Recipient() == "" {
		customer, err := s.customerRepo.GetByID(ctx, original.CustomerID)
		if err != nil {
			return 0, fmt.Errorf("failed to look up customer: %w", err)
		}
		recipient := customer.RecipientFor(original.Channel)
		if recipient == "" {
			field := "phone number"
			if original.Channel == models.ChannelEmail {
				field = "email"
			}
			return 0, &BusinessLogicError{
				Message: fmt.Sprintf("customer %d still has no %s on file", original.CustomerID, field),
			}
		}
		switch original.Channel {
		case models.ChannelSMS:
			resend.RecipientPhone = &recipient
		case models.ChannelEmail:
			resend.RecipientEmail = &recipient
		}
	}

	if err := s.deliveryRepo.Create(ctx, resend); err != nil {
		return 0, fmt.Errorf("failed to create resend delivery: %w", err)
	}

	if err := s.attachmentRepo.CopyToDelivery(ctx, original.ID, resend.ID); err != nil {
		return 0, fmt.Errorf("failed to copy attachments for resend: %w", err)
	}

	s.logger.Info().
		Int("delivery_id", resend.ID).
		Int("original_delivery_id", original.ID).
		Str("channel", string(original.Channel)).
		Msg("delivery resent")

	return resend.ID, nil
}

// resolveLanguage resolves the effective language: explicit request, then
// customer default, then system default
func resolveLanguage(requested, customerDefault *string, systemDefault string) string {
	if requested != nil && *requested != "" {
		return *requested
	}
	if customerDefault != nil && *customerDefault != "" {
		return *customerDefault
	}
	return systemDefault
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
