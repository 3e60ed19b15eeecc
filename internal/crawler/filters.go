package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// builtinIgnorePatterns exclude URLs no documentation crawl wants:
// binary downloads, social widgets, auth pages and archived versioned
// docs trees.
var builtinIgnorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(exe|msi|dmg|pkg|zip|tar\.gz|tgz|rar|7z|iso|pdf|woff2?|ttf|eot)$`),
	regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|ico|webp|mp4|webm|mp3)$`),
	regexp.MustCompile(`(?i)//(www\.)?(twitter|x|facebook|linkedin|instagram|youtube|discord|reddit)\.com/`),
	regexp.MustCompile(`(?i)/(login|logout|signin|signup|sign-in|sign-up|register)(/|$)`),
	regexp.MustCompile(`/docs/v\d+\.\d+/`),
}

// LinkFilter decides which discovered links a crawl may follow
type LinkFilter struct {
	allow  []*regexp.Regexp
	ignore []*regexp.Regexp
}

// NewLinkFilter compiles the per-job allow and ignore patterns. An empty
// allow list admits everything not ignored.
func NewLinkFilter(allowPatterns, ignorePatterns []string) (*LinkFilter, error) {
	f := &LinkFilter{}
	for _, p := range allowPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", p, err)
		}
		f.allow = append(f.allow, re)
	}
	for _, p := range ignorePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		f.ignore = append(f.ignore, re)
	}
	return f, nil
}

// Allowed reports whether the crawl may follow the URL. Ignore patterns
// (built-in plus per-job) win over allow patterns.
func (f *LinkFilter) Allowed(rawURL string) bool {
	for _, re := range builtinIgnorePatterns {
		if re.MatchString(rawURL) {
			return false
		}
	}
	for _, re := range f.ignore {
		if re.MatchString(rawURL) {
			return false
		}
	}
	if len(f.allow) == 0 {
		return true
	}
	for _, re := range f.allow {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// InScope reports whether linkURL stays on the crawl's site: same host
// as the base URL, or a subdomain of it when the job allows subdomains.
// The www prefix counts as the bare host either way.
func InScope(baseURL, linkURL string, includeSubdomains bool) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	link, err := url.Parse(linkURL)
	if err != nil {
		return false
	}

	baseHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	linkHost := strings.TrimPrefix(strings.ToLower(link.Hostname()), "www.")
	if baseHost == "" || linkHost == "" {
		return false
	}
	if linkHost == baseHost {
		return true
	}
	return includeSubdomains && strings.HasSuffix(linkHost, "."+baseHost)
}
