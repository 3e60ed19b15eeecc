package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Docs.Example.COM/Guide", "https://docs.example.com/Guide"},
		{"strips default https port", "https://docs.example.com:443/guide", "https://docs.example.com/guide"},
		{"strips default http port", "http://docs.example.com:80/guide", "http://docs.example.com/guide"},
		{"keeps explicit port", "https://docs.example.com:8443/guide", "https://docs.example.com:8443/guide"},
		{"drops fragment", "https://docs.example.com/guide#install", "https://docs.example.com/guide"},
		{"trims trailing slash", "https://docs.example.com/guide/", "https://docs.example.com/guide"},
		{"keeps root slash", "https://docs.example.com/", "https://docs.example.com/"},
		{"adds root slash", "https://docs.example.com", "https://docs.example.com/"},
		{"resolves dot segments", "https://docs.example.com/a/b/../c/./d", "https://docs.example.com/a/c/d"},
		{"sorts query params", "https://docs.example.com/guide?b=2&a=1", "https://docs.example.com/guide?a=1&b=2"},
		{"strips tracking params", "https://docs.example.com/guide?utm_source=x&a=1&fbclid=y", "https://docs.example.com/guide?a=1"},
		{"keeps empty query values", "https://docs.example.com/guide?a=&b=2", "https://docs.example.com/guide?a=&b=2"},
		{"decodes needless percent-escapes", "https://docs.example.com/%41/guide", "https://docs.example.com/A/guide"},
		{"trims whitespace", "  https://docs.example.com/guide  ", "https://docs.example.com/guide"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Docs.Example.COM:443/Guide/../intro/?utm_source=x&b=2&a=1#top",
		"http://example.com",
		"https://docs.example.com/a/b/c?z=9&y=8",
	}
	for _, in := range inputs {
		once, err := NormalizeURL(in)
		require.NoError(t, err)
		twice, err := NormalizeURL(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalization must be idempotent for %s", in)
	}
}

func TestNormalizeURLRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "/relative/path", "ftp://example.com/file", "://bad"} {
		_, err := NormalizeURL(in)
		assert.Error(t, err, "expected rejection of %q", in)
	}
}
