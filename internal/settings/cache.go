package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"covermsg/internal/repository"
)

// Cache is the read-through settings cache. Snapshot is the only way other
// components read tunables; Update is the only write path.
//
// Reads inside the refresh window return the in-memory snapshot without
// touching the database. Past the window, one lightweight meta read decides
// whether a full reload is needed: unchanged meta just resets the check
// clock. Worst-case staleness is therefore bounded by one refresh interval.
type Cache struct {
	repo   repository.SettingsRepository
	logger zerolog.Logger

	// now is swapped for a fake clock in tests
	now func() time.Time

	mu                sync.Mutex
	snapshot          Settings
	lastMetaUpdatedAt time.Time
	lastCheck         time.Time
	loaded            bool
}

// NewCache creates a new settings cache
func NewCache(repo repository.SettingsRepository, logger zerolog.Logger) *Cache {
	return &Cache{
		repo:   repo,
		logger: logger.With().Str("component", "settings_cache").Logger(),
		now:    time.Now,
	}
}

// Snapshot returns the current settings, refreshing from the database when
// the staleness window has elapsed and something actually changed
func (c *Cache) Snapshot(ctx context.Context) (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if c.loaded && now.Sub(c.lastCheck) < c.snapshot.CacheRefreshInterval() {
		return c.snapshot, nil
	}

	metaUpdatedAt, err := c.repo.GetMetaUpdatedAt(ctx)
	if err != nil {
		if c.loaded {
			// Serve the stale snapshot rather than failing reads; staleness
			// stays bounded because the next call retries the meta read.
			c.logger.Warn().Err(err).Msg("settings meta read failed, serving cached snapshot")
			return c.snapshot, nil
		}
		return Settings{}, fmt.Errorf("failed to read settings meta: %w", err)
	}

	if c.loaded && metaUpdatedAt.Equal(c.lastMetaUpdatedAt) {
		c.lastCheck = now
		return c.snapshot, nil
	}

	rows, err := c.repo.GetAll(ctx)
	if err != nil {
		if c.loaded {
			c.logger.Warn().Err(err).Msg("settings reload failed, serving cached snapshot")
			return c.snapshot, nil
		}
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	c.snapshot = fromRows(rows)
	c.lastMetaUpdatedAt = metaUpdatedAt
	c.lastCheck = now
	c.loaded = true

	c.logger.Debug().Int("keys", len(rows)).Msg("settings snapshot reloaded")
	return c.snapshot, nil
}

// Update validates and persists a partial settings update, then invalidates
// the cached snapshot so the writer observes its own change immediately
func (c *Cache) Update(ctx context.Context, values map[string]string, actorID string) error {
	if err := ValidatePatch(values); err != nil {
		return err
	}

	if err := c.repo.Update(ctx, values, actorID); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	c.mu.Lock()
	c.lastCheck = time.Time{}
	c.mu.Unlock()

	return nil
}
