// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Last10 returns the last 10 digits of the number, ignoring formatting and
// country code. Numbers with fewer than 10 digits are returned whole. This is
// the suffix key used for tolerant lead matching.
func Last10(input string) string {
	digits := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		if input[i] >= '0' && input[i] <= '9' {
			digits = append(digits, input[i])
		}
	}
	if len(digits) <= 10 {
		return string(digits)
	}
	return string(digits[len(digits)-10:])
}

// SameSuffix reports whether two raw numbers share the same last-10-digit key.
func SameSuffix(a, b string) bool {
	ka := Last10(a)
	return ka != "" && ka == Last10(b)
}
