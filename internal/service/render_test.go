package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScanRequiredPlaceholders(t *testing.T) {
	t.Run("collects unique sorted keys across texts", func(t *testing.T) {
		keys, err := ScanRequiredPlaceholders(
			"Hi {first_name}, policy {policy_number}",
			"Dear {first_name}, starts {start_date}",
		)
		require.NoError(t, err)
		require.Equal(t, []string{"first_name", "policy_number", "start_date"}, keys)
	})

	t.Run("no placeholders yields empty set", func(t *testing.T) {
		keys, err := ScanRequiredPlaceholders("plain text, no tokens")
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("rejects keys outside the allowed alphabet", func(t *testing.T) {
		_, err := ScanRequiredPlaceholders("Hello {First Name} and {amount}")
		require.Error(t, err)
		require.IsType(t, &ValidationError{}, err)
		require.Contains(t, err.Error(), "{First Name}")
	})

	t.Run("rejects empty braces", func(t *testing.T) {
		_, err := ScanRequiredPlaceholders("broken {} token")
		require.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	t.Run("substitutes every token", func(t *testing.T) {
		out, err := Render("Hi {first_name}, your policy {policy_number} is active.", map[string]interface{}{
			"first_name":    "Amina",
			"policy_number": "POL-123",
		})
		require.NoError(t, err)
		require.Equal(t, "Hi Amina, your policy POL-123 is active.", out)
		require.NotContains(t, out, "{")
	})

	t.Run("repeated token is substituted everywhere", func(t *testing.T) {
		out, err := Render("{name} {name} {name}", map[string]interface{}{"name": "x"})
		require.NoError(t, err)
		require.Equal(t, "x x x", out)
	})

	t.Run("reports all missing keys in one error", func(t *testing.T) {
		_, err := Render("{a} {b} {c}", map[string]interface{}{"b": "ok"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "a")
		require.Contains(t, err.Error(), "c")
		require.NotContains(t, err.Error(), "b,")
	})

	t.Run("blank string value counts as missing", func(t *testing.T) {
		_, err := Render("{name}", map[string]interface{}{"name": "   "})
		require.Error(t, err)
		require.Contains(t, err.Error(), "name")
	})

	t.Run("extra values are ignored", func(t *testing.T) {
		out, err := Render("Hi {name}", map[string]interface{}{
			"name":   "Joe",
			"unused": "whatever",
		})
		require.NoError(t, err)
		require.Equal(t, "Hi Joe", out)
	})

	t.Run("time values render as RFC3339", func(t *testing.T) {
		when := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
		out, err := Render("starts {start_date}", map[string]interface{}{"start_date": when})
		require.NoError(t, err)
		require.Equal(t, "starts 2026-03-15T09:30:00Z", out)
	})

	t.Run("json numbers render without trailing fraction", func(t *testing.T) {
		out, err := Render("amount {amount}, rate {rate}", map[string]interface{}{
			"amount": float64(2500),
			"rate":   12.5,
		})
		require.NoError(t, err)
		require.Equal(t, "amount 2500, rate 12.5", out)
	})
}
