// Package policy masks personal data before it reaches logs.
package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// Passport numbers are usually one or two letters followed by 6-9 digits.
	passportPattern = regexp.MustCompile(`\b[A-Z]{1,2}[0-9]{6,9}\b`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	replace := func(re *regexp.Regexp, marker string) {
		next := re.ReplaceAllString(out, marker)
		changed = changed || next != out
		out = next
	}

	replace(emailPattern, "[REDACTED_EMAIL]")
	// Cards before phones, or long card numbers read as phone numbers.
	replace(cardPattern, "[REDACTED_CARD]")
	replace(passportPattern, "[REDACTED_PASSPORT]")
	replace(phonePattern, "[REDACTED_PHONE]")
	return out, changed
}

// LogPreview returns at most maxRunes runes of input with PII masked.
func LogPreview(input string, maxRunes int) string {
	out, _ := RedactPII(input)
	if maxRunes <= 0 {
		return out
	}
	r := []rune(out)
	if len(r) <= maxRunes {
		return out
	}
	return string(r[:maxRunes]) + "…"
}
