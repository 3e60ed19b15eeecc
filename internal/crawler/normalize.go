package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// trackingParams are query parameters that never change page content and
// are stripped during normalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"ref":          true,
}

// NormalizeURL canonicalizes a URL so that every spelling of the same
// page maps to one dedup key: lowercase scheme and host, default ports
// and fragments dropped, dot segments resolved, trailing slash trimmed
// (except root), tracking parameters removed and the rest sorted.
// Normalizing an already-normalized URL is a no-op.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("URL must be absolute: %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch u.Scheme {
	case "http":
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case "https":
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
	} else {
		cleaned := path.Clean(u.Path)
		if cleaned == "." {
			cleaned = "/"
		}
		u.Path = cleaned
	}
	// Drop the original escaping so String() re-encodes from the decoded
	// path; otherwise /%41 and /A survive as distinct keys
	u.RawPath = ""

	if u.RawQuery != "" {
		query := u.Query()
		kept := url.Values{}
		for key, values := range query {
			if trackingParams[strings.ToLower(key)] {
				continue
			}
			for _, v := range values {
				kept.Add(key, v)
			}
		}
		// Encode sorts keys, giving a stable ordering
		u.RawQuery = kept.Encode()
	}

	return u.String(), nil
}
