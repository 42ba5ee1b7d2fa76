package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separatorRe = regexp.MustCompile(`[\s\-().]+`)
	phoneRe     = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// NormalizePhone strips formatting characters from a raw phone number and
// validates the result. A single leading "+" is preserved; everything else
// must be digits. Returns the normalized number or an error when the input
// cannot be a dialable number.
func NormalizePhone(raw string) (string, error) {
	s := separatorRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return "", fmt.Errorf("phone number is empty")
	}

	if !phoneRe.MatchString(s) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return s, nil
}
