package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// rowTimeFormat is the canonical column encoding for timestamps: UTC with
// fixed-width nanoseconds, so lexicographic order equals chronological order
// and ORDER BY on the column is correct.
const rowTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// EncodeTime renders t for storage.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(rowTimeFormat)
}

// DecodeTime parses a stored timestamp.
func DecodeTime(s string) (time.Time, error) {
	t, err := time.Parse(rowTimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// EncodeTimePtr renders an optional timestamp; nil maps to SQL NULL.
func EncodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return EncodeTime(*t)
}

// DecodeTimePtr parses an optional stored timestamp.
func DecodeTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := DecodeTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeTags renders a normalized tag list as its JSON column form.
func EncodeTags(tags []string) (string, error) {
	b, err := json.Marshal(NormalizeTags(tags))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeTags parses the JSON column form back into a tag list.
func DecodeTags(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("invalid stored tags %q: %w", s, err)
	}
	return tags, nil
}
