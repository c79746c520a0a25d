package links

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Resolve converts a possibly-relative reference into an absolute URL using
// baseURL. References that already carry a scheme and host are returned
// unchanged.
func Resolve(reference, baseURL string) (string, error) {
	reference = strings.TrimSpace(reference)
	ref, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", reference, err)
	}
	if ref.Scheme != "" && ref.Host != "" {
		return reference, nil
	}

	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", baseURL, err)
	}
	if !base.IsAbs() || base.Host == "" {
		return "", fmt.Errorf("base %q is not absolute", baseURL)
	}
	if ref.Scheme != "" {
		// opaque or host-less schemes such as mailto: cannot be navigated
		return "", errors.New("reference has a scheme but no host")
	}
	return base.ResolveReference(ref).String(), nil
}

// IsAbsolute reports whether raw parses as a URL with scheme and host.
func IsAbsolute(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
