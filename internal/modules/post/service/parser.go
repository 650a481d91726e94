package service

import (
	"regexp"
	"strings"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// Matches the numeric status segment of post URLs, e.g.
// https://x.com/user/status/1234567890 or https://twitter.com/user/status/1234567890
var statusPattern = regexp.MustCompile(`/status/(\d+)`)

// ExtractPostID extracts the post identifier from a pasted URL.
// The query string is dropped first so tracking parameters never
// interfere with the match.
func ExtractPostID(rawURL string) (string, error) {
	cleaned := rawURL
	if i := strings.Index(cleaned, "?"); i >= 0 {
		cleaned = cleaned[:i]
	}

	matches := statusPattern.FindStringSubmatch(cleaned)
	if len(matches) < 2 {
		return "", errors.ErrPostIDNotFound
	}

	return matches[1], nil
}
