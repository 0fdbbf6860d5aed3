package identity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var phoneStripper = strings.NewReplacer("+", "", " ", "")

// NormalizePhone strips "+" and spaces. The result is only used for equality
// checks and as the stored phone value of new leads.
func NormalizePhone(phone string) string {
	return phoneStripper.Replace(phone)
}

// NormalizeName trims and lower-cases a business title. Names are composed
// to NFC first so visually identical titles compare equal.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToLower(norm.NFC.String(name))
}
