package geocoding

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	cepPattern = regexp.MustCompile(`^(?:CEP\s*)?(\d{5})-?(\d{3})$`)
	spaceRun   = regexp.MustCompile(`\s+`)
	commaRun   = regexp.MustCompile(`\s*,(\s*,)*\s*`)
)

// NormalizeAddress puts an address into NFC form, collapses whitespace and
// drops the empty segments left behind by missing address components.
func NormalizeAddress(address string) string {
	s := norm.NFC.String(address)
	s = spaceRun.ReplaceAllString(s, " ")
	s = commaRun.ReplaceAllString(s, ", ")
	s = strings.Trim(s, " ,-")
	return s
}

// ParseCEP reports whether s is a bare Brazilian postal code and returns it in
// the canonical 00000-000 form.
func ParseCEP(s string) (string, bool) {
	m := cepPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return "", false
	}
	return m[1] + "-" + m[2], true
}
