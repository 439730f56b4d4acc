package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// LocalBackendURL is the backend used when the client is served from a
// local development host.
const LocalBackendURL = "http://localhost:3000"

// ErrBackendURLRequired is returned when a non-local deployment has no
// CHATBOT_API_URL override.
var ErrBackendURLRequired = errors.New("CHATBOT_API_URL is required when CHATBOT_HOST is not a local development host")

var localHosts = map[string]struct{}{
	"":          {},
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// IsLocalHost reports whether host names a local development machine.
// A port suffix is ignored.
func IsLocalHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if name, _, err := net.SplitHostPort(h); err == nil {
		h = name
	}
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	_, ok := localHosts[h]
	return ok
}

// ResolveBackendURL picks the backend base URL for the given serving host.
// Local hosts always talk to LocalBackendURL; every other host must supply
// an override, so a deployment never silently falls back to localhost.
func ResolveBackendURL(host, override string) (string, error) {
	if IsLocalHost(host) {
		return LocalBackendURL, nil
	}

	override = strings.TrimSpace(override)
	if override == "" {
		return "", ErrBackendURLRequired
	}

	u, err := url.Parse(override)
	if err != nil {
		return "", fmt.Errorf("invalid CHATBOT_API_URL value %q: %w", override, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid CHATBOT_API_URL value %q: want an absolute http(s) URL", override)
	}

	return strings.TrimRight(override, "/"), nil
}
