package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ParseAllowedHosts splits a comma separated host list as found in
// OPENROUTER_ALLOWED_HOSTS.
func ParseAllowedHosts(csv string) []string {
	var out []string
	for _, h := range strings.Split(csv, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// ValidateBaseURL only accepts an https origin whose host is allowed.
// With no allowed hosts configured the public OpenRouter hosts are used.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: absolute URL with host is required", baseURL)
	case u.User != nil:
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: userinfo is not allowed", baseURL)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: query and fragment are not allowed", baseURL)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: https is required", baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if !hostAllowed(host, allowedHosts) {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: host %q is not in OPENROUTER_ALLOWED_HOSTS", baseURL, host)
	}
	return nil
}

func hostAllowed(host string, allowedHosts []string) bool {
	allowed := normalizeHosts(allowedHosts)
	if len(allowed) == 0 {
		allowed = defaultAllowedHosts
	}
	for _, h := range allowed {
		if h == host {
			return true
		}
	}
	return false
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
