package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Wire timestamps are ISO-8601 with no fractional seconds.
const (
	timeLayout = "2006-01-02T15:04:05Z07:00"
	dateLayout = "2006-01-02"
)

// Time is a time.Time carried at whole-second precision, both on the wire
// and in the database.
type Time struct {
	time.Time
}

// NewTime truncates t to whole seconds.
func NewTime(t time.Time) Time {
	return Time{t.Truncate(time.Second)}
}

// NewTimeRef is NewTime for optional fields.
func NewTimeRef(t time.Time) *Time {
	ref := NewTime(t)
	return &ref
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Truncate(time.Second).Format(timeLayout) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements sql.Scanner.
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = NewTime(v)
		return nil
	case nil:
		*t = Time{}
		return nil
	default:
		return fmt.Errorf("model: cannot scan %T into Time", src)
	}
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	return t.Time.Truncate(time.Second), nil
}

// ParseTime accepts an ISO-8601 timestamp, with or without fractional
// seconds, or a bare calendar date.
func ParseTime(s string) (Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, NewError("time", ErrInvalidDate)
}
