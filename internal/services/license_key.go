package services

import (
	"strings"

	"github.com/google/uuid"
)

const licenseKeyLength = 16

// NormalizeLicenseKey strips dashes and whitespace and upper-cases the key so
// "abcd-1234" and "ABCD1234" address the same record.
func NormalizeLicenseKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r == '-', r == ' ', r == '\t', r == '\n', r == '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// FormatLicenseKey groups a normalized key in blocks of four for display.
func FormatLicenseKey(key string) string {
	clean := NormalizeLicenseKey(key)
	if len(clean) <= 4 {
		return clean
	}
	parts := make([]string, 0, (len(clean)+3)/4)
	for i := 0; i < len(clean); i += 4 {
		end := i + 4
		if end > len(clean) {
			end = len(clean)
		}
		parts = append(parts, clean[i:end])
	}
	return strings.Join(parts, "-")
}

// MaskLicenseKey keeps the first block of a key for log lines.
func MaskLicenseKey(key string) string {
	clean := NormalizeLicenseKey(key)
	if len(clean) < 8 {
		return "****"
	}
	return clean[:4] + "****"
}

// GenerateLicenseKey returns a new normalized 16-character key.
func GenerateLicenseKey() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return id[:licenseKeyLength]
}
