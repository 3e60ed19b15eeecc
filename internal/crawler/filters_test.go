package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkFilterBuiltins(t *testing.T) {
	f, err := NewLinkFilter(nil, nil)
	require.NoError(t, err)

	blocked := []string{
		"https://docs.example.com/release.zip",
		"https://docs.example.com/logo.png",
		"https://twitter.com/example",
		"https://docs.example.com/login",
		"https://docs.example.com/docs/v1.2/old-guide",
	}
	for _, u := range blocked {
		assert.False(t, f.Allowed(u), "builtin ignore should block %s", u)
	}

	assert.True(t, f.Allowed("https://docs.example.com/guide/install"))
	assert.True(t, f.Allowed("https://docs.example.com/docs/latest/guide"))
}

func TestLinkFilterAllowAndIgnore(t *testing.T) {
	f, err := NewLinkFilter([]string{`/docs/`}, []string{`/docs/internal/`})
	require.NoError(t, err)

	assert.True(t, f.Allowed("https://docs.example.com/docs/guide"))
	assert.False(t, f.Allowed("https://docs.example.com/blog/post"), "outside allow list")
	assert.False(t, f.Allowed("https://docs.example.com/docs/internal/secret"), "ignore wins over allow")

	_, err = NewLinkFilter([]string{"["}, nil)
	assert.Error(t, err, "broken allow pattern must be rejected")
}

func TestInScope(t *testing.T) {
	base := "https://docs.example.com/guide"

	assert.True(t, InScope(base, "https://docs.example.com/other", false))
	assert.True(t, InScope(base, "https://www.docs.example.com/other", false), "www prefix is the same site")
	assert.False(t, InScope(base, "https://api.docs.example.com/v1", false), "subdomain out of scope by default")
	assert.True(t, InScope(base, "https://api.docs.example.com/v1", true))
	assert.False(t, InScope(base, "https://elsewhere.com/docs", true))
	assert.False(t, InScope(base, "https://notdocs.example.com.evil.com/", true))
}
