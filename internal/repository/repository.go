package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"covermsg/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// DeliveryRepository defines delivery data access operations
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.Delivery) error
	GetByID(ctx context.Context, id int) (*models.Delivery, error)
	GetWithDetails(ctx context.Context, id int) (*models.DeliveryWithDetails, error)
	List(ctx context.Context, filters DeliveryFilters) ([]*models.Delivery, int, error)

	// ClaimEligible atomically claims up to batchSize due deliveries for
	// processing. It is the sole path by which a delivery leaves
	// pending/retry_wait, and concurrent callers receive disjoint sets.
	ClaimEligible(ctx context.Context, batchSize int) ([]*models.DeliveryWithDetails, error)

	MarkSent(ctx context.Context, id int, providerMessageID string) error
	MarkRetryWait(ctx context.Context, id int, lastError string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id int, lastError string) error
	SetRenderedContent(ctx context.Context, id int, usedLanguage string, subject, body, textBody *string) error
	ClearAttachmentSpecs(ctx context.Context, id int) error
	CountStuckProcessing(ctx context.Context, olderThan time.Duration) (int, error)
}

// DeliveryFilters defines filters for listing deliveries
type DeliveryFilters struct {
	Page       int
	PageSize   int
	CustomerID *int
	PolicyID   *int
	Channel    *models.Channel
	Status     *models.DeliveryStatus
}

// AttachmentRepository defines attachment data access operations
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	SetStorageLocation(ctx context.Context, id int, bucket, path string, sizeBytes int64) error

	// SoftDelete marks an attachment deleted so claims and dispatch skip
	// it. Used when an upload fails after the row was created, and for
	// retention cleanup.
	SoftDelete(ctx context.Context, id int) error

	ListActiveByDeliveryID(ctx context.Context, deliveryID int) ([]*models.Attachment, error)

	// CopyToDelivery duplicates the source delivery's non-deleted attachment
	// rows for the target delivery, pointing at the same storage paths.
	CopyToDelivery(ctx context.Context, sourceDeliveryID, targetDeliveryID int) error
}

// TemplateRepository defines messaging template data access operations
type TemplateRepository interface {
	Create(ctx context.Context, template *models.MessagingTemplate) error
	GetByID(ctx context.Context, id int) (*models.MessagingTemplate, error)
	Update(ctx context.Context, template *models.MessagingTemplate) error
	List(ctx context.Context, filters TemplateFilters) ([]*models.MessagingTemplate, error)
	FindActive(ctx context.Context, templateKey string, channel models.Channel, language string) (*models.MessagingTemplate, error)
}

// TemplateFilters defines filters for listing templates
type TemplateFilters struct {
	TemplateKey *string
	Channel     *models.Channel
	Language    *string
}

// RouteRepository defines messaging route data access operations
type RouteRepository interface {
	Create(ctx context.Context, route *models.MessagingRoute) error
	GetByID(ctx context.Context, id int) (*models.MessagingRoute, error)
	GetByTemplateKey(ctx context.Context, templateKey string) (*models.MessagingRoute, error)
	Update(ctx context.Context, route *models.MessagingRoute) error
	List(ctx context.Context) ([]*models.MessagingRoute, error)
}

// AttachmentTemplateRepository defines attachment template data access operations
type AttachmentTemplateRepository interface {
	Create(ctx context.Context, template *models.AttachmentTemplate) error
	GetByID(ctx context.Context, id int) (*models.AttachmentTemplate, error)
	Update(ctx context.Context, template *models.AttachmentTemplate) error
	List(ctx context.Context) ([]*models.AttachmentTemplate, error)
}

// CustomerRepository defines customer data access operations
type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id int) (*models.Customer, error)
}

// SettingsRepository defines system settings data access operations
type SettingsRepository interface {
	GetAll(ctx context.Context) ([]*models.SystemSetting, error)

	// GetMetaUpdatedAt reads the single meta timestamp row that every
	// settings writer bumps. One cheap read tells callers whether any
	// setting changed since the last full load.
	GetMetaUpdatedAt(ctx context.Context) (time.Time, error)

	// Update upserts the given values and bumps the meta timestamp in the
	// same transaction.
	Update(ctx context.Context, values map[string]string, actorID string) error
}

// PolicyMemberRepository defines read access to membership card data
type PolicyMemberRepository interface {
	GetMember(ctx context.Context, policyID, memberIndex int) (*models.PolicyMember, error)
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
