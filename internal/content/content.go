package content

import (
	"errors"
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxErrorLength is the longest custom error message shown in full.
	MaxErrorLength = 60
	ellipsis       = "..."
)

var (
	policy    = bluemonday.StrictPolicy()
	hostRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?(:[0-9]{1,5})?$`)
)

// Sanitize strips all markup from input and returns plain text. Displays
// render messages as text, so entities are decoded back to characters.
func Sanitize(input string) string {
	return html.UnescapeString(policy.Sanitize(input))
}

// Truncate cuts s to length characters and appends "..." if it was longer.
func Truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length]) + ellipsis
}

// ErrorMessage prepares a custom error message for display. Truncation counts
// characters of the plain text.
func ErrorMessage(input string) string {
	return Truncate(Sanitize(input), MaxErrorLength)
}

// ValidateHost checks that host is a bare hostname or IP, optionally with a
// port.
func ValidateHost(host string) error {
	if host == "" {
		return errors.New("host cannot be empty")
	}
	if len(host) > 253 || !hostRegex.MatchString(host) {
		return errors.New("host contains invalid characters (allowed: alphanumeric, dot, dash, optional :port)")
	}
	return nil
}
