package common

import (
	"fmt"
	"strings"
)

// FormatCoordinates renders a coordinate pair the way fallback labels display it.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.2f, %.2f", lat, lon)
}

// FirstSegment returns the first comma-separated part of s, trimmed.
func FirstSegment(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func trimSpace(b []byte) []byte {
	return []byte(strings.TrimSpace(string(b)))
}
