package domain

import "strings"

// NormalizeZip reduces arbitrary input to a 5-digit ZIP, or "" when fewer
// than four digits are present.
func NormalizeZip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	digits := b.String()

	switch {
	case len(digits) >= 5:
		return digits[:5]
	case len(digits) == 4:
		return "0" + digits
	default:
		return ""
	}
}

// SanitizeZip is NormalizeZip with an explicit validity flag.
func SanitizeZip(raw string) (string, bool) {
	z := NormalizeZip(raw)
	return z, z != ""
}
