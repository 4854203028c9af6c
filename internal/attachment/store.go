// Package attachment generates delivery attachments and persists them to a
// storage backend with retention expiry.
package attachment

import (
	"context"
	"fmt"
	"mime"
	"path"
	"time"
)

// NeverExpires is the far-future sentinel used when retention is disabled.
// A sentinel instead of NULL keeps expiry comparisons simple.
var NeverExpires = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Store persists generated attachment bytes. The same interface is served by
// a local filesystem backend for development and an object storage backend
// for deployed environments.
type Store interface {
	// Upload stores the file under {deliveryID}/{attachmentID}.<ext> and
	// returns the storage path.
	Upload(ctx context.Context, deliveryID, attachmentID int, fileName string, data []byte) (string, error)

	// Get returns the file bytes and mime type for a storage path.
	Get(ctx context.Context, storagePath string) ([]byte, string, error)

	// Delete removes the file at a storage path.
	Delete(ctx context.Context, storagePath string) error

	// Bucket identifies the backend location recorded on attachment rows.
	Bucket() string
}

// ComputeExpiry returns when an attachment created at createdAt becomes
// eligible for deletion. retentionMonths <= 0 means the attachment never
// expires.
func ComputeExpiry(createdAt time.Time, retentionMonths int) time.Time {
	if retentionMonths <= 0 {
		return NeverExpires
	}
	return createdAt.UTC().AddDate(0, retentionMonths, 0)
}

// objectKey builds the canonical storage key for an attachment
func objectKey(deliveryID, attachmentID int, fileName string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%d/%d%s", deliveryID, attachmentID, ext)
}

// mimeTypeFor derives a mime type from a file name
func mimeTypeFor(fileName string) string {
	if mimeType := mime.TypeByExtension(path.Ext(fileName)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
