package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)
	placeholderKey     = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ScanRequiredPlaceholders extracts every {key} token from the given texts
// and returns the sorted unique keys. Keys must match ^[a-z0-9_]+$; anything
// else is a format error, which guards against template authors embedding
// free-form braces.
func ScanRequiredPlaceholders(texts ...string) ([]string, error) {
	seen := map[string]bool{}
	var invalid []string

	for _, text := range texts {
		for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			key := match[1]
			if !placeholderKey.MatchString(key) {
				if !seen["{"+key+"}"] {
					invalid = append(invalid, match[0])
					seen["{"+key+"}"] = true
				}
				continue
			}
			seen[key] = true
		}
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &ValidationError{
			Message: fmt.Sprintf("invalid placeholder(s) %s: keys must match [a-z0-9_]+", strings.Join(invalid, ", ")),
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Render substitutes every {key} token in text with its value. Every
// required key must have a present, non-blank value; all missing keys are
// reported in a single error so template authors get one complete report.
func Render(text string, values map[string]interface{}) (string, error) {
	required, err := ScanRequiredPlaceholders(text)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, key := range required {
		value, ok := values[key]
		if !ok || isBlank(value) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", &ValidationError{
			Message: fmt.Sprintf("missing placeholder value(s): %s", strings.Join(missing, ", ")),
		}
	}

	rendered := text
	for _, key := range required {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", formatValue(values[key]))
	}

	return rendered, nil
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// formatValue serializes a placeholder value for substitution. Dates are
// serialized as ISO-8601.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case float64:
		// JSON numbers decode as float64; print integers without a fraction
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
