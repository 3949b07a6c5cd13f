// Package urlnorm canonicalizes and validates video page URLs.
package urlnorm

import (
	"regexp"
	"strings"

	"github.com/emanuelef/yt-info-api/internal/domain"
)

// CanonicalWatchURL is the prefix every rewritten link is given.
const CanonicalWatchURL = "https://www.youtube.com/watch?v="

var (
	shortLinkPattern = regexp.MustCompile(`youtu\.be/([^?&/\s]+)`)
	shortsPattern    = regexp.MustCompile(`shorts/([^?&/\s]+)`)

	// Scheme and www. are optional; only the host is checked.
	supportedPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/`)
)

// Rejection reasons returned by Prepare.
var (
	ErrNoURL      = &domain.InputError{Code: "MISSING_URL", Reason: "No URL provided"}
	ErrInvalidURL = &domain.InputError{Code: "INVALID_URL", Reason: "Invalid YouTube URL"}
)

// Normalize rewrites short links and shorts paths to the canonical watch URL.
// Any other input is returned trimmed.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}

	if m := shortLinkPattern.FindStringSubmatch(rawURL); m != nil {
		return CanonicalWatchURL + m[1]
	}
	if m := shortsPattern.FindStringSubmatch(rawURL); m != nil {
		return CanonicalWatchURL + m[1]
	}

	return rawURL
}

// IsSupported reports whether url syntactically references a supported host.
// It does not guarantee the engine can resolve it.
func IsSupported(url string) bool {
	if url == "" {
		return false
	}
	return supportedPattern.MatchString(url)
}

// Prepare turns client input into a canonical, supported URL or an
// *domain.InputError.
func Prepare(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrNoURL
	}

	url := Normalize(rawURL)
	if !IsSupported(url) {
		return "", ErrInvalidURL
	}

	return url, nil
}
