package domain

import (
	"strings"
	"unicode"
)

// Observation is one hourly ground-truth PM2.5 measurement (µg/m³).
// PM25 is NaN when the monitor reported nothing for that hour.
type Observation struct {
	ValidTime int     `json:"valid_time"`
	PM25      float64 `json:"pm25"`
}

// Slug turns a location name into a lower-case path component:
// "Denver--Aurora, CO" becomes "denver-aurora-co".
func Slug(location string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(location)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
