// Package volunteers derives stable volunteer identities, removes duplicate
// signups within a batch and reconciles the batch with the persisted roster.
package volunteers

import (
	"strings"
	"unicode"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// Digits keeps only the decimal digits of a phone number
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key is FIRST_LAST_PHONEDIGITS, the only identifier stable across runs
func Key(first, last, phone string) string {
	return strings.ToUpper(strings.TrimSpace(first)) + "_" +
		strings.ToUpper(strings.TrimSpace(last)) + "_" +
		Digits(phone)
}

// KeyOf computes the identity key of a signup row
func KeyOf(r models.SignupRecord) string {
	return Key(r.FirstName, r.LastName, r.Phone)
}

// ValidKey rejects keys built from a row with no name and no phone
func ValidKey(key string) bool {
	return strings.IndexFunc(key, func(r rune) bool { return r != '_' && !unicode.IsSpace(r) }) >= 0
}
