package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/danielgtaylor/huma/v2"
)

// dateOnly is the layout date pickers send.
const dateOnly = "2006-01-02"

// FlexTime is a time type that can unmarshal from any of:
// - RFC3339 string: "2024-01-15T10:30:00Z"
// - Date string: "2024-01-15" (midnight UTC)
// - Epoch milliseconds string: "1705314600000"
// - Empty string: the zero time
//
// It always marshals to RFC3339 format for consistency.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON handles flexible time parsing from JSON.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
	}
	t, err := ParseFlexTime(s)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON outputs time in RFC3339 format.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	if ft.IsZero() {
		return []byte(`""`), nil
	}
	return sonic.Marshal(ft.UTC().Format(time.RFC3339))
}

// Schema implements huma.SchemaProvider.
func (FlexTime) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        huma.TypeString,
		Description: "RFC 3339 timestamp, YYYY-MM-DD date, or empty string",
		Examples:    []any{"2024-01-15T10:30:00Z", "2024-01-15"},
	}
}

// ParseFlexTime parses the formats FlexTime accepts.
func ParseFlexTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time string: %s", s)
}
