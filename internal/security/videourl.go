package security

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateVideoURL checks that raw is an absolute http or https URL with a
// host. Credentials embedded in the URL are rejected.
func ValidateVideoURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("video url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid video url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported video url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("video url has no host")
	}
	if u.User != nil {
		return nil, fmt.Errorf("video url must not carry credentials")
	}
	return u, nil
}
