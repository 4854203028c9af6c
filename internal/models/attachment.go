package models

import "time"

// Attachment represents a generated file bound to exactly one delivery
type Attachment struct {
	ID            int        `json:"id" db:"id"`
	DeliveryID    int        `json:"delivery_id" db:"delivery_id"`
	FileName      string     `json:"file_name" db:"file_name"`
	MimeType      string     `json:"mime_type" db:"mime_type"`
	StorageBucket string     `json:"storage_bucket" db:"storage_bucket"`
	StoragePath   string     `json:"storage_path" db:"storage_path"`
	SizeBytes     int64      `json:"size_bytes" db:"size_bytes"`
	ExpiresAt     time.Time  `json:"expires_at" db:"expires_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsDeleted reports whether the attachment has been soft-deleted by the
// retention sweep
func (a *Attachment) IsDeleted() bool {
	return a.DeletedAt != nil
}
