package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"covermsg/internal/models"
)

// Setting keys as stored in the system_settings table
const (
	KeySMSMaxAttempts            = "smsMaxAttempts"
	KeyEmailMaxAttempts          = "emailMaxAttempts"
	KeyBaseRetryDelaySeconds     = "baseRetryDelaySeconds"
	KeyMaxRetryDelaySeconds      = "maxRetryDelaySeconds"
	KeyWorkerBatchSize           = "workerBatchSize"
	KeyWorkerPollIntervalSeconds = "workerPollIntervalSeconds"
	KeyAttachmentRetentionMonths = "attachmentRetentionMonths"
	KeyCacheRefreshSeconds       = "systemSettingsCacheRefreshSeconds"
	KeyDefaultLanguage           = "defaultLanguage"
)

// MaxCacheRefreshSeconds bounds how stale any settings reader can be, so
// configuration changes propagate within the operational SLA.
const MaxCacheRefreshSeconds = 120

// Settings is the typed snapshot every component reads tunables from
type Settings struct {
	SMSMaxAttempts            int
	EmailMaxAttempts          int
	BaseRetryDelaySeconds     int
	MaxRetryDelaySeconds      int
	WorkerBatchSize           int
	WorkerPollIntervalSeconds int
	AttachmentRetentionMonths int
	CacheRefreshSeconds       int
	DefaultLanguage           string
}

// Defaults returns the fallback values used when a setting row is missing
// or malformed
func Defaults() Settings {
	return Settings{
		SMSMaxAttempts:            3,
		EmailMaxAttempts:          3,
		BaseRetryDelaySeconds:     30,
		MaxRetryDelaySeconds:      3600,
		WorkerBatchSize:           20,
		WorkerPollIntervalSeconds: 5,
		AttachmentRetentionMonths: 6,
		CacheRefreshSeconds:       60,
		DefaultLanguage:           "en",
	}
}

// MaxAttemptsFor returns the retry limit for the given channel
func (s Settings) MaxAttemptsFor(channel models.Channel) int {
	if channel == models.ChannelEmail {
		return s.EmailMaxAttempts
	}
	return s.SMSMaxAttempts
}

// BaseRetryDelay returns the first retry delay
func (s Settings) BaseRetryDelay() time.Duration {
	return time.Duration(s.BaseRetryDelaySeconds) * time.Second
}

// MaxRetryDelay returns the upper bound on any retry delay
func (s Settings) MaxRetryDelay() time.Duration {
	return time.Duration(s.MaxRetryDelaySeconds) * time.Second
}

// PollInterval returns the worker tick interval
func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.WorkerPollIntervalSeconds) * time.Second
}

// CacheRefreshInterval returns how long a snapshot may be served without a
// meta check
func (s Settings) CacheRefreshInterval() time.Duration {
	return time.Duration(s.CacheRefreshSeconds) * time.Second
}

// fromRows builds a snapshot from raw setting rows, falling back to defaults
// for any key that is missing or fails to parse
func fromRows(rows []*models.SystemSetting) Settings {
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	s := Defaults()
	s.SMSMaxAttempts = intValue(values, KeySMSMaxAttempts, s.SMSMaxAttempts)
	s.EmailMaxAttempts = intValue(values, KeyEmailMaxAttempts, s.EmailMaxAttempts)
	s.BaseRetryDelaySeconds = intValue(values, KeyBaseRetryDelaySeconds, s.BaseRetryDelaySeconds)
	s.MaxRetryDelaySeconds = intValue(values, KeyMaxRetryDelaySeconds, s.MaxRetryDelaySeconds)
	s.WorkerBatchSize = intValue(values, KeyWorkerBatchSize, s.WorkerBatchSize)
	s.WorkerPollIntervalSeconds = intValue(values, KeyWorkerPollIntervalSeconds, s.WorkerPollIntervalSeconds)
	s.AttachmentRetentionMonths = nonNegativeIntValue(values, KeyAttachmentRetentionMonths, s.AttachmentRetentionMonths)
	s.CacheRefreshSeconds = intValue(values, KeyCacheRefreshSeconds, s.CacheRefreshSeconds)
	if s.CacheRefreshSeconds > MaxCacheRefreshSeconds {
		s.CacheRefreshSeconds = MaxCacheRefreshSeconds
	}
	if lang, ok := values[KeyDefaultLanguage]; ok && strings.TrimSpace(lang) != "" {
		s.DefaultLanguage = strings.TrimSpace(lang)
	}
	return s
}

func intValue(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// nonNegativeIntValue allows zero, which means "never" for retention
func nonNegativeIntValue(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// ValidatePatch validates a partial settings update. Every invalid key is
// reported in one error so callers get a complete report.
func ValidatePatch(values map[string]string) error {
	positiveKeys := map[string]bool{
		KeySMSMaxAttempts:            true,
		KeyEmailMaxAttempts:          true,
		KeyBaseRetryDelaySeconds:     true,
		KeyMaxRetryDelaySeconds:      true,
		KeyWorkerBatchSize:           true,
		KeyWorkerPollIntervalSeconds: true,
	}

	var problems []string
	for key, raw := range values {
		value := strings.TrimSpace(raw)
		switch {
		case positiveKeys[key]:
			if n, err := strconv.Atoi(value); err != nil || n <= 0 {
				problems = append(problems, fmt.Sprintf("%s must be a positive integer", key))
			}
		case key == KeyAttachmentRetentionMonths:
			if n, err := strconv.Atoi(value); err != nil || n < 0 {
				problems = append(problems, fmt.Sprintf("%s must be zero or a positive integer", key))
			}
		case key == KeyCacheRefreshSeconds:
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				problems = append(problems, fmt.Sprintf("%s must be a positive integer", key))
			} else if n > MaxCacheRefreshSeconds {
				problems = append(problems, fmt.Sprintf("%s must not exceed %d", key, MaxCacheRefreshSeconds))
			}
		case key == KeyDefaultLanguage:
			if value == "" {
				problems = append(problems, fmt.Sprintf("%s must not be blank", key))
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown setting %q", key))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}

	return nil
}
