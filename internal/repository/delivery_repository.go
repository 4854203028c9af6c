package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"covermsg/internal/models"
)

const deliveryColumns = `id, correlation_id, channel, template_key, requested_language, used_language,
		customer_id, policy_id, recipient_phone, recipient_email,
		rendered_subject, rendered_body, rendered_text_body,
		placeholder_values, dynamic_attachment_specs,
		status, attempt_count, max_attempts, last_attempt_at, next_attempt_at, last_error,
		original_delivery_id, provider_message_id, created_at, updated_at`

type deliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *sql.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDelivery(row rowScanner, d *models.Delivery) error {
	return row.Scan(
		&d.ID,
		&d.CorrelationID,
		&d.Channel,
		&d.TemplateKey,
		&d.RequestedLanguage,
		&d.UsedLanguage,
		&d.CustomerID,
		&d.PolicyID,
		&d.RecipientPhone,
		&d.RecipientEmail,
		&d.RenderedSubject,
		&d.RenderedBody,
		&d.RenderedTextBody,
		&d.PlaceholderValues,
		&d.DynamicAttachmentSpecs,
		&d.Status,
		&d.AttemptCount,
		&d.MaxAttempts,
		&d.LastAttemptAt,
		&d.NextAttemptAt,
		&d.LastError,
		&d.OriginalDeliveryID,
		&d.ProviderMessageID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// Create creates a new delivery row
func (r *deliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	query := `
		INSERT INTO deliveries (
			correlation_id, channel, template_key, requested_language, used_language,
			customer_id, policy_id, recipient_phone, recipient_email,
			rendered_subject, rendered_body, rendered_text_body,
			placeholder_values, dynamic_attachment_specs,
			status, attempt_count, max_attempts, next_attempt_at, last_error, original_delivery_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		delivery.CorrelationID,
		delivery.Channel,
		delivery.TemplateKey,
		delivery.RequestedLanguage,
		delivery.UsedLanguage,
		delivery.CustomerID,
		delivery.PolicyID,
		delivery.RecipientPhone,
		delivery.RecipientEmail,
		delivery.RenderedSubject,
		delivery.RenderedBody,
		delivery.RenderedTextBody,
		delivery.PlaceholderValues,
		delivery.DynamicAttachmentSpecs,
		delivery.Status,
		delivery.AttemptCount,
		delivery.MaxAttempts,
		delivery.NextAttemptAt,
		delivery.LastError,
		delivery.OriginalDeliveryID,
	).Scan(&delivery.ID, &delivery.CreatedAt, &delivery.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// GetByID retrieves a delivery by ID
func (r *deliveryRepository) GetByID(ctx context.Context, id int) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`

	delivery := &models.Delivery{}
	err := scanDelivery(r.db.QueryRowContext(ctx, query, id), delivery)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}

	return delivery, nil
}

// GetWithDetails retrieves a delivery with its customer and attachments
func (r *deliveryRepository) GetWithDetails(ctx context.Context, id int) (*models.DeliveryWithDetails, error) {
	delivery, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &models.DeliveryWithDetails{Delivery: *delivery}

	if err := r.attachDetails(ctx, []*models.DeliveryWithDetails{result}); err != nil {
		return nil, err
	}

	return result, nil
}

// List retrieves deliveries matching the given filters with a total count
func (r *deliveryRepository) List(ctx context.Context, filters DeliveryFilters) ([]*models.Delivery, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	addCondition := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filters.CustomerID != nil {
		addCondition("customer_id = $%d", *filters.CustomerID)
	}
	if filters.PolicyID != nil {
		addCondition("policy_id = $%d", *filters.PolicyID)
	}
	if filters.Channel != nil {
		addCondition("channel = $%d", *filters.Channel)
	}
	if filters.Status != nil {
		addCondition("status = $%d", *filters.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM deliveries` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(
		`SELECT %s FROM deliveries%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		deliveryColumns, where, argPos, argPos+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []*models.Delivery{}
	for rows.Next() {
		delivery := &models.Delivery{}
		if err := scanDelivery(rows, delivery); err != nil {
			return nil, 0, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, total, nil
}

// ClaimEligible claims up to batchSize due deliveries in a single statement.
// FOR UPDATE SKIP LOCKED makes concurrent claimers skip rows already locked
// by an in-flight transaction instead of blocking on them, so any delivery
// id lands in at most one caller's result set.
func (r *deliveryRepository) ClaimEligible(ctx context.Context, batchSize int) ([]*models.DeliveryWithDetails, error) {
	query := `
		UPDATE deliveries d
		SET status = 'processing', last_attempt_at = NOW(), updated_at = NOW()
		FROM (
			SELECT id FROM deliveries
			WHERE status IN ('pending', 'retry_wait')
			  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
			ORDER BY next_attempt_at ASC NULLS FIRST, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) eligible
		WHERE d.id = eligible.id
		RETURNING ` + prefixColumns("d.", deliveryColumns)

	rows, err := r.db.QueryContext(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim deliveries: %w", err)
	}
	defer rows.Close()

	claimed := []*models.DeliveryWithDetails{}
	for rows.Next() {
		delivery := &models.DeliveryWithDetails{}
		if err := scanDelivery(rows, &delivery.Delivery); err != nil {
			return nil, fmt.Errorf("failed to scan claimed delivery: %w", err)
		}
		claimed = append(claimed, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed deliveries: %w", err)
	}

	if len(claimed) == 0 {
		return claimed, nil
	}

	// The inner select orders oldest-due first, but UPDATE ... RETURNING does
	// not promise to preserve that order, so it is restored here.
	sort.SliceStable(claimed, func(i, j int) bool {
		return dueBefore(&claimed[i].Delivery, &claimed[j].Delivery)
	})

	// Customers and attachments are loaded after the claim has committed so
	// the row locks are never held across the extra reads.
	if err := r.attachDetails(ctx, claimed); err != nil {
		return nil, err
	}

	return claimed, nil
}

// dueBefore orders deliveries the way the claim select does: by
// next_attempt_at with NULLs first, then by created_at
func dueBefore(a, b *models.Delivery) bool {
	switch {
	case a.NextAttemptAt == nil && b.NextAttemptAt != nil:
		return true
	case a.NextAttemptAt != nil && b.NextAttemptAt == nil:
		return false
	case a.NextAttemptAt != nil && b.NextAttemptAt != nil && !a.NextAttemptAt.Equal(*b.NextAttemptAt):
		return a.NextAttemptAt.Before(*b.NextAttemptAt)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// attachDetails loads customers and non-deleted attachments for the given deliveries
func (r *deliveryRepository) attachDetails(ctx context.Context, deliveries []*models.DeliveryWithDetails) error {
	customerIDs := make([]int, 0, len(deliveries))
	deliveryIDs := make([]int, 0, len(deliveries))
	for _, d := range deliveries {
		customerIDs = append(customerIDs, d.CustomerID)
		deliveryIDs = append(deliveryIDs, d.ID)
	}

	customerQuery := `
		SELECT id, first_name, last_name, phone, email, preferred_language, created_at
		FROM customers
		WHERE id = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, customerQuery, pq.Array(customerIDs))
	if err != nil {
		return fmt.Errorf("failed to load delivery customers: %w", err)
	}
	defer rows.Close()

	customers := map[int]models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.PreferredLanguage, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan customer: %w", err)
		}
		customers[c.ID] = c
	}

	attachmentQuery := `
		SELECT id, delivery_id, file_name, mime_type, storage_bucket, storage_path,
		       size_bytes, expires_at, deleted_at, created_at
		FROM attachments
		WHERE delivery_id = ANY($1) AND deleted_at IS NULL
		ORDER BY id ASC
	`
	attachmentRows, err := r.db.QueryContext(ctx, attachmentQuery, pq.Array(deliveryIDs))
	if err != nil {
		return fmt.Errorf("failed to load delivery attachments: %w", err)
	}
	defer attachmentRows.Close()

	attachments := map[int][]*models.Attachment{}
	for attachmentRows.Next() {
		a := &models.Attachment{}
		err := attachmentRows.Scan(
			&a.ID, &a.DeliveryID, &a.FileName, &a.MimeType, &a.StorageBucket,
			&a.StoragePath, &a.SizeBytes, &a.ExpiresAt, &a.DeletedAt, &a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments[a.DeliveryID] = append(attachments[a.DeliveryID], a)
	}

	for _, d := range deliveries {
		d.Customer = customers[d.CustomerID]
		d.Attachments = attachments[d.ID]
	}

	return nil
}

// MarkSent records a successful provider send
func (r *deliveryRepository) MarkSent(ctx context.Context, id int, providerMessageID string) error {
	query := `
		UPDATE deliveries
		SET status = 'sent', attempt_count = attempt_count + 1,
			provider_message_id = $2, next_attempt_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execDeliveryUpdate(ctx, "mark delivery sent", query, id, providerMessageID)
}

// MarkRetryWait schedules the next attempt after a transient failure
func (r *deliveryRepository) MarkRetryWait(ctx context.Context, id int, lastError string, nextAttemptAt time.Time) error {
	query := `
		UPDATE deliveries
		SET status = 'retry_wait', attempt_count = attempt_count + 1,
			last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execDeliveryUpdate(ctx, "mark delivery retry_wait", query, id, lastError, nextAttemptAt)
}

// MarkFailed records a terminal failure
func (r *deliveryRepository) MarkFailed(ctx context.Context, id int, lastError string) error {
	query := `
		UPDATE deliveries
		SET status = 'failed', attempt_count = attempt_count + 1,
			last_error = $2, next_attempt_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execDeliveryUpdate(ctx, "mark delivery failed", query, id, lastError)
}

// SetRenderedContent writes rendered content exactly once. The rendered_body
// guard keeps content immutable after the first successful render.
func (r *deliveryRepository) SetRenderedContent(ctx context.Context, id int, usedLanguage string, subject, body, textBody *string) error {
	query := `
		UPDATE deliveries
		SET used_language = $2, rendered_subject = $3, rendered_body = $4,
			rendered_text_body = $5, updated_at = NOW()
		WHERE id = $1 AND rendered_body IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, usedLanguage, subject, body, textBody)
	if err != nil {
		return fmt.Errorf("failed to set rendered content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delivery %d not found or content already rendered", id)
	}

	return nil
}

// ClearAttachmentSpecs clears the dynamic attachment specs after the worker
// has generated them
func (r *deliveryRepository) ClearAttachmentSpecs(ctx context.Context, id int) error {
	query := `UPDATE deliveries SET dynamic_attachment_specs = NULL, updated_at = NOW() WHERE id = $1`
	return r.execDeliveryUpdate(ctx, "clear attachment specs", query, id)
}

// CountStuckProcessing counts deliveries stuck in processing, for operator
// alerting on crashed workers. There is no automatic reclaim; a stuck row
// needs an operator decision.
func (r *deliveryRepository) CountStuckProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `
		SELECT COUNT(*) FROM deliveries
		WHERE status = 'processing' AND last_attempt_at < NOW() - $1::interval
	`

	var count int
	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	if err := r.db.QueryRowContext(ctx, query, interval).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stuck deliveries: %w", err)
	}

	return count, nil
}

func (r *deliveryRepository) execDeliveryUpdate(ctx context.Context, action, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// prefixColumns qualifies each column in a comma-separated list with the
// given table alias
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
