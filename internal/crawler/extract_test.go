package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Install Guide</title></head>
<body>
  <nav><a href="/">Home</a><a href="/api">API</a></nav>
  <main>
    <h1>Installing the tool</h1>
    <p>Download the release archive and unpack it somewhere on your PATH.
       The binary is self-contained and needs no further setup.</p>
    <pre><code>curl -LO https://example.com/release.tar.gz</code></pre>
    <a href="./advanced">Advanced setup</a>
    <a href="https://docs.example.com/api#auth">API auth</a>
    <a href="mailto:help@example.com">Contact</a>
    <a href="/api">API again</a>
  </main>
  <footer><a href="/api">API footer</a></footer>
</body>
</html>`

func TestExtractPageDefaultSelectors(t *testing.T) {
	page, err := ExtractPage("https://docs.example.com/install", samplePage, "")
	require.NoError(t, err)

	assert.Equal(t, "Install Guide", page.Title)
	// main wins over body, so the nav and footer stay out
	assert.Contains(t, page.Markdown, "Installing the tool")
	assert.Contains(t, page.Markdown, "release archive")
	assert.NotContains(t, page.Markdown, "API footer")
	// code blocks survive the markdown conversion
	assert.Contains(t, page.Markdown, "curl -LO")
}

func TestExtractPageCustomSelector(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
	  <div class="docs-body"><p>short but trusted</p></div>
	  <main><p>` + strings.Repeat("long main content ", 20) + `</p></main>
	</body></html>`

	// A custom selector is trusted even below the default floor
	page, err := ExtractPage("https://docs.example.com/x", html, ".docs-body")
	require.NoError(t, err)
	assert.Contains(t, page.Markdown, "short but trusted")
	assert.NotContains(t, page.Markdown, "long main content")

	_, err = ExtractPage("https://docs.example.com/x", html, ".does-not-exist")
	assert.True(t, IsExtractError(err), "missing selector must be an extract error, got %v", err)
}

func TestExtractPageBodyFallbackNeedsSubstance(t *testing.T) {
	thin := `<html><head><title>T</title></head><body><p>tiny</p></body></html>`
	_, err := ExtractPage("https://docs.example.com/x", thin, "")
	assert.True(t, IsExtractError(err), "thin body must not satisfy the default selectors")

	fat := `<html><head><title>T</title></head><body><p>` +
		strings.Repeat("plenty of text here ", 10) + `</p></body></html>`
	page, err := ExtractPage("https://docs.example.com/x", fat, "")
	require.NoError(t, err)
	assert.Contains(t, page.Markdown, "plenty of text")
}

func TestExtractPageTitleFallback(t *testing.T) {
	html := `<html><body><main><h1>Heading Title</h1><p>` +
		strings.Repeat("content ", 30) + `</p></main></body></html>`
	page, err := ExtractPage("https://docs.example.com/x", html, "")
	require.NoError(t, err)
	assert.Equal(t, "Heading Title", page.Title)
}

func TestExtractPageLinks(t *testing.T) {
	page, err := ExtractPage("https://docs.example.com/install", samplePage, "")
	require.NoError(t, err)

	assert.Contains(t, page.Links, "https://docs.example.com/advanced", "relative links resolve against the page")
	assert.Contains(t, page.Links, "https://docs.example.com/api")
	assert.Contains(t, page.Links, "https://docs.example.com/api#auth")
	for _, link := range page.Links {
		assert.False(t, strings.HasPrefix(link, "mailto:"), "mailto links excluded")
	}

	// /api appears three times in the page but once in the result
	occurrences := 0
	for _, link := range page.Links {
		if link == "https://docs.example.com/api" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}
