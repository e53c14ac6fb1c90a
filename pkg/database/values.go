package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// NullString stores empty strings as NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NullTime stores nil times as NULL and everything else in UTC.
func NullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// JSONValue encodes v for a JSON column. Nil, empty slices and empty maps are stored as NULL.
func JSONValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed encoding json column: %w", err)
	}
	return string(b), nil
}

// DecodeJSON decodes a JSON column read into a sql.NullString. NULL leaves dst untouched.
func DecodeJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("failed decoding json column: %w", err)
	}
	return nil
}

// Int64Ptr converts a scanned nullable integer.
func Int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// IntPtr converts a scanned nullable integer.
func IntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// TimePtr converts a scanned nullable time to UTC.
func TimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
