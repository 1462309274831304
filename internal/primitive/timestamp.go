package primitive

import (
	"fmt"
	"strings"
	"time"
)

// timestampCode is the CESR hard code for an RFC3339 date-time primitive.
const timestampCode = "1AAG"

// EncodeTimestamp renders t as code∥RFC3339-with-microseconds, matching the
// fixed-width date-time text KERI events carry in their `dt` field.
func EncodeTimestamp(t time.Time) string {
	return timestampCode + t.UTC().Format("2006-01-02T15:04:05.000000-00:00")
}

// DecodeTimestamp parses a code∥payload timestamp frame.
func DecodeTimestamp(s string) (time.Time, int, error) {
	if !strings.HasPrefix(s, timestampCode) {
		return time.Time{}, 0, fmt.Errorf("primitive: not a timestamp frame")
	}
	rest := s[len(timestampCode):]
	const layout = "2006-01-02T15:04:05.000000-00:00"
	if len(rest) < len(layout) {
		return time.Time{}, 0, fmt.Errorf("primitive: short timestamp frame")
	}
	t, err := time.Parse(layout, rest[:len(layout)])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("primitive: bad timestamp payload: %w", err)
	}
	return t, len(timestampCode) + len(layout), nil
}
