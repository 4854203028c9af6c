package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"covermsg/internal/models"
)

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetAll retrieves every setting row
func (r *settingsRepository) GetAll(ctx context.Context) ([]*models.SystemSetting, error) {
	query := `SELECT key, value, updated_at, updated_by FROM system_settings ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	settings := []*models.SystemSetting{}
	for rows.Next() {
		s := &models.SystemSetting{}
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, nil
}

// GetMetaUpdatedAt reads the single settings meta timestamp row
func (r *settingsRepository) GetMetaUpdatedAt(ctx context.Context) (time.Time, error) {
	query := `SELECT updated_at FROM settings_meta WHERE id = 1`

	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get settings meta: %w", err)
	}

	return updatedAt, nil
}

// Update upserts the given settings and bumps the meta timestamp in the same
// transaction, which is what lets readers detect changes with one cheap read
func (r *settingsRepository) Update(ctx context.Context, values map[string]string, actorID string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO system_settings (key, value, updated_at, updated_by)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW(), updated_by = $3
	`

	// Deterministic key order keeps concurrent writers from deadlocking on
	// row locks.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, upsert, key, values[key], actorID); err != nil {
			return fmt.Errorf("failed to upsert setting %q: %w", key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE settings_meta SET updated_at = NOW() WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to bump settings meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
