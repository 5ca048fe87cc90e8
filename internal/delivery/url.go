// Package delivery validates the proof-of-placement URL sellers submit.
package delivery

import (
	"net/url"
	"strings"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

const MaxURLLength = 500

// ValidateURL trims raw and rejects empty, oversized, markup-bearing or
// non-http(s) values.
func ValidateURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", apperr.Validation("delivery_url is required")
	}
	if len(u) > MaxURLLength {
		return "", apperr.Validation("delivery_url must be at most %d characters", MaxURLLength)
	}
	if strings.ContainsAny(u, `<>"'&`) {
		return "", apperr.Validation("delivery_url contains forbidden characters")
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", apperr.Validation("delivery_url must be an absolute http(s) URL")
	}
	return u, nil
}
