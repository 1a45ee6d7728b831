package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// timeLayout is RFC 3339 with fixed-width fractional seconds, so text
// order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalRoots converts version roots to canonical JSON TEXT for storage.
func marshalRoots(roots []string) (string, error) {
	if roots == nil {
		roots = []string{}
	}
	data, err := ir.MarshalCanonical(roots)
	if err != nil {
		return "", fmt.Errorf("marshal roots: %w", err)
	}
	return string(data), nil
}

// unmarshalRoots parses canonical JSON TEXT to roots.
func unmarshalRoots(data string) ([]string, error) {
	roots := []string{}
	if data == "" || data == "[]" {
		return roots, nil
	}
	if err := json.Unmarshal([]byte(data), &roots); err != nil {
		return nil, fmt.Errorf("unmarshal roots: %w", err)
	}
	return roots, nil
}
