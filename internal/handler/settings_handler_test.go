package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"covermsg/internal/models"
	"covermsg/internal/settings"
)

type fakeSettingsRepo struct {
	rows      []*models.SystemSetting
	updateErr error
	updates   []map[string]string
	actors    []string
}

func (r *fakeSettingsRepo) GetAll(context.Context) ([]*models.SystemSetting, error) {
	return r.rows, nil
}

func (r *fakeSettingsRepo) GetMetaUpdatedAt(context.Context) (time.Time, error) {
	return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), nil
}

func (r *fakeSettingsRepo) Update(_ context.Context, values map[string]string, actorID string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, values)
	r.actors = append(r.actors, actorID)
	return nil
}

func newSettingsHandler(repo *fakeSettingsRepo) *SettingsHandler {
	return NewSettingsHandler(settings.NewCache(repo, zerolog.Nop()), repo)
}

func TestSettingsHandler_Update(t *testing.T) {
	t.Run("applies the patch with the acting operator", func(t *testing.T) {
		updatedBy := "ops@example.com"
		repo := &fakeSettingsRepo{
			rows: []*models.SystemSetting{{Key: "smsMaxAttempts", Value: "5", UpdatedBy: &updatedBy}},
		}
		h := newSettingsHandler(repo)

		req := httptest.NewRequest(http.MethodPatch, "/api/settings", strings.NewReader(`{"values":{"smsMaxAttempts":"5"}}`))
		req.Header.Set("X-Actor-Id", "ops@example.com")
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"ops@example.com"}, repo.actors)
		require.Len(t, repo.updates, 1)
		require.Equal(t, "5", repo.updates[0]["smsMaxAttempts"])
	})

	t.Run("invalid values are a 400 and never reach the repository", func(t *testing.T) {
		repo := &fakeSettingsRepo{}
		h := newSettingsHandler(repo)

		req := httptest.NewRequest(http.MethodPatch, "/api/settings", strings.NewReader(`{"values":{"smsMaxAttempts":"-1"}}`))
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)
		require.Empty(t, repo.updates)
	})

	t.Run("empty patch is a 400", func(t *testing.T) {
		h := newSettingsHandler(&fakeSettingsRepo{})

		req := httptest.NewRequest(http.MethodPatch, "/api/settings", strings.NewReader(`{"values":{}}`))
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("a storage fault on a valid patch is a 500, not a 400", func(t *testing.T) {
		repo := &fakeSettingsRepo{updateErr: errors.New("connection refused")}
		h := newSettingsHandler(repo)

		req := httptest.NewRequest(http.MethodPatch, "/api/settings", strings.NewReader(`{"values":{"smsMaxAttempts":"5"}}`))
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Error.Code)
	})
}

func TestSettingsHandler_List(t *testing.T) {
	seed := "seed"
	repo := &fakeSettingsRepo{
		rows: []*models.SystemSetting{
			{Key: "defaultLanguage", Value: "en", UpdatedBy: &seed},
			{Key: "smsMaxAttempts", Value: "3", UpdatedBy: &seed},
		},
	}
	h := newSettingsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "defaultLanguage")
	require.Contains(t, rec.Body.String(), "smsMaxAttempts")
}
