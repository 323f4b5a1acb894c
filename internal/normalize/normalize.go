// Package normalize provides deterministic, idempotent transforms that
// turn raw contact fields into comparable keys for identity resolution.
// Every function returns the empty string for empty or unusable input.
package normalize

import "strings"

// MinPhoneDigits is the digit count at which a normalized phone is
// considered a conclusive identity signal.
const MinPhoneDigits = 10

// businessSuffixes are stripped from the end of business names, longest
// match first so "services" wins over "service".
var businessSuffixes = []string{
	" company",
	" services",
	" service",
	" corp",
	" llc",
	" inc",
	" ltd",
	" co",
}

// Phone reduces a phone number to its digits, keeping the last 10 when a
// country code is present.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= MinPhoneDigits {
		return digits[len(digits)-MinPhoneDigits:]
	}
	return digits
}

// Name lowercases a business name and strips a single trailing business
// suffix ("llc", "inc", ...).
func Name(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range businessSuffixes {
		if strings.HasSuffix(n, suffix) {
			n = strings.TrimSuffix(n, suffix)
			break
		}
	}
	return strings.TrimSpace(n)
}

// Website reduces a URL to its bare domain: no scheme, no leading www.,
// no path.
func Website(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}

// Email lowercases and trims an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
