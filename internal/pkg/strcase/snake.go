// Package strcase converts Go identifiers into JSON-style keys.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts an identifier such as "PhoneNumber" or "OTPCode" to
// snake_case ("phone_number", "otp_code"). Runs of capitals are kept together.
func ToLowerSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && wordStarts(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// wordStarts reports whether the upper-case rune at i opens a new word.
func wordStarts(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
