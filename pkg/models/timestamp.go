package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp accepts RFC 3339 as well as the "Y-m-d H:i:s" form the backend uses
// for some columns. Zone-less values are wall-clock times in the shop's zone and
// are placed there by At.
type Timestamp struct {
	time.Time
	zoneless bool
}

// At returns the instant in loc. A zone-less value keeps its wall clock.
func (t Timestamp) At(loc *time.Location) time.Time {
	if loc == nil || t.IsZero() {
		return t.Time
	}
	if t.zoneless {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t.Time.In(loc)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.zoneless = false
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			t.zoneless = layout != time.RFC3339Nano
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.zoneless {
		return json.Marshal(t.Format("2006-01-02 15:04:05"))
	}
	return json.Marshal(t.Time)
}
