package database

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for TEXT timestamp columns.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t for a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatNullTime renders an optional timestamp.
func FormatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseTime reads a TEXT timestamp written by FormatTime. RFC 3339 values
// written by other tools are accepted too.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseNullTime reads an optional TEXT timestamp.
func ParseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
