package voice

import (
	"fmt"
	"time"
)

// parseTimestamp reads a provider timestamp. Amadeus sends local airport time
// without an offset (2025-09-10T08:45:00); those are kept as wall-clock values
// in UTC so the spoken time matches the airport board. Zoned values keep
// their own offset.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}

// spokenTime renders a 12-hour clock without a leading zero, e.g. 9:05 AM.
func spokenTime(t time.Time) string {
	return t.Format("3:04 PM")
}
