package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"covermsg/internal/models"
)

func rows(pairs map[string]string) []*models.SystemSetting {
	var out []*models.SystemSetting
	for key, value := range pairs {
		out = append(out, &models.SystemSetting{Key: key, Value: value})
	}
	return out
}

func TestFromRows(t *testing.T) {
	t.Run("empty rows yield defaults", func(t *testing.T) {
		s := fromRows(nil)
		require.Equal(t, Defaults(), s)
	})

	t.Run("valid rows override defaults", func(t *testing.T) {
		s := fromRows(rows(map[string]string{
			KeySMSMaxAttempts:        "5",
			KeyBaseRetryDelaySeconds: "10",
			KeyDefaultLanguage:       "sw",
		}))
		require.Equal(t, 5, s.SMSMaxAttempts)
		require.Equal(t, 10*time.Second, s.BaseRetryDelay())
		require.Equal(t, "sw", s.DefaultLanguage)
		// Untouched keys keep their defaults
		require.Equal(t, Defaults().EmailMaxAttempts, s.EmailMaxAttempts)
	})

	t.Run("malformed values fall back to defaults", func(t *testing.T) {
		s := fromRows(rows(map[string]string{
			KeySMSMaxAttempts:  "banana",
			KeyWorkerBatchSize: "-3",
		}))
		require.Equal(t, Defaults().SMSMaxAttempts, s.SMSMaxAttempts)
		require.Equal(t, Defaults().WorkerBatchSize, s.WorkerBatchSize)
	})

	t.Run("retention zero means never expire", func(t *testing.T) {
		s := fromRows(rows(map[string]string{KeyAttachmentRetentionMonths: "0"}))
		require.Equal(t, 0, s.AttachmentRetentionMonths)
	})

	t.Run("cache refresh is clamped to the staleness bound", func(t *testing.T) {
		s := fromRows(rows(map[string]string{KeyCacheRefreshSeconds: "900"}))
		require.Equal(t, MaxCacheRefreshSeconds, s.CacheRefreshSeconds)
	})
}

func TestMaxAttemptsFor(t *testing.T) {
	s := Settings{SMSMaxAttempts: 3, EmailMaxAttempts: 5}
	require.Equal(t, 3, s.MaxAttemptsFor(models.ChannelSMS))
	require.Equal(t, 5, s.MaxAttemptsFor(models.ChannelEmail))
}

func TestValidatePatch(t *testing.T) {
	t.Run("valid patch", func(t *testing.T) {
		err := ValidatePatch(map[string]string{
			KeySMSMaxAttempts:            "4",
			KeyAttachmentRetentionMonths: "0",
			KeyCacheRefreshSeconds:       "120",
			KeyDefaultLanguage:           "sw",
		})
		require.NoError(t, err)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		err := ValidatePatch(map[string]string{"nonsenseKey": "1"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "nonsenseKey")
	})

	t.Run("cache refresh above the bound is rejected", func(t *testing.T) {
		err := ValidatePatch(map[string]string{KeyCacheRefreshSeconds: "121"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "must not exceed 120")
	})

	t.Run("all problems reported at once", func(t *testing.T) {
		err := ValidatePatch(map[string]string{
			KeySMSMaxAttempts:  "zero",
			KeyDefaultLanguage: " ",
			"bogus":            "x",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), KeySMSMaxAttempts)
		require.Contains(t, err.Error(), KeyDefaultLanguage)
		require.Contains(t, err.Error(), "bogus")
	})

	t.Run("zero retry attempts is rejected", func(t *testing.T) {
		err := ValidatePatch(map[string]string{KeyEmailMaxAttempts: "0"})
		require.Error(t, err)
	})
}
