package repository

import (
	"context"
	"database/sql"
	"fmt"

	"covermsg/internal/models"
)

type attachmentRepository struct {
	db *sql.DB
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Create creates a new attachment row
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	query := `
		INSERT INTO attachments (delivery_id, file_name, mime_type, storage_bucket, storage_path, size_bytes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		attachment.DeliveryID,
		attachment.FileName,
		attachment.MimeType,
		attachment.StorageBucket,
		attachment.StoragePath,
		attachment.SizeBytes,
		attachment.ExpiresAt,
	).Scan(&attachment.ID, &attachment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	return nil
}

// SetStorageLocation records where the uploaded file landed. The row is
// created before the upload so the storage key can include the attachment id.
func (r *attachmentRepository) SetStorageLocation(ctx context.Context, id int, bucket, path string, sizeBytes int64) error {
	query := `
		UPDATE attachments
		SET storage_bucket = $2, storage_path = $3, size_bytes = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, bucket, path, sizeBytes)
	if err != nil {
		return fmt.Errorf("failed to set attachment storage location: %w", err)
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

// SoftDelete marks an attachment row deleted
func (r *attachmentRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE attachments SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete attachment: %w", err)
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

// ListActiveByDeliveryID retrieves all non-deleted attachments for a delivery
func (r *attachmentRepository) ListActiveByDeliveryID(ctx context.Context, deliveryID int) ([]*models.Attachment, error) {
	query := `
		SELECT id, delivery_id, file_name, mime_type, storage_bucket, storage_path,
		       size_bytes, expires_at, deleted_at, created_at
		FROM attachments
		WHERE delivery_id = $1 AND deleted_at IS NULL
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []*models.Attachment{}
	for rows.Next() {
		a := &models.Attachment{}
		err := rows.Scan(
			&a.ID, &a.DeliveryID, &a.FileName, &a.MimeType, &a.StorageBucket,
			&a.StoragePath, &a.SizeBytes, &a.ExpiresAt, &a.DeletedAt, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}

	return attachments, nil
}

// CopyToDelivery duplicates the source delivery's non-deleted attachment rows
// for the target delivery. The new rows point at the same storage paths, so
// no file bytes are copied.
func (r *attachmentRepository) CopyToDelivery(ctx context.Context, sourceDeliveryID, targetDeliveryID int) error {
	query := `
		INSERT INTO attachments (delivery_id, file_name, mime_type, storage_bucket, storage_path, size_bytes, expires_at)
		SELECT $2, file_name, mime_type, storage_bucket, storage_path, size_bytes, expires_at
		FROM attachments
		WHERE delivery_id = $1 AND deleted_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, sourceDeliveryID, targetDeliveryID); err != nil {
		return fmt.Errorf("failed to copy attachments: %w", err)
	}

	return nil
}
