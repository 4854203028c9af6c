package attachment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore implements Store on the local filesystem, for development
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem store rooted at baseDir
func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Upload implements Store
func (s *FSStore) Upload(_ context.Context, deliveryID, attachmentID int, fileName string, data []byte) (string, error) {
	key := objectKey(deliveryID, attachmentID, fileName)
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment file: %w", err)
	}

	return key, nil
}

// Get implements Store
func (s *FSStore) Get(_ context.Context, storagePath string) ([]byte, string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storagePath))

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attachment file: %w", err)
	}

	return data, mimeTypeFor(storagePath), nil
}

// Delete implements Store
func (s *FSStore) Delete(_ context.Context, storagePath string) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storagePath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete attachment file: %w", err)
	}
	return nil
}

// Bucket implements Store
func (s *FSStore) Bucket() string {
	return "local:" + s.baseDir
}
