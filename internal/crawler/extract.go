package crawler

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// defaultContentSelectors are tried in order when a source supplies no
// content selector. The body fallback only counts when it yields a
// substantial amount of text.
var defaultContentSelectors = []string{
	"main",
	"article",
	".content",
	".main-content",
	"#content",
	".documentation",
	"[role=main]",
	"body",
}

// defaultSelectorMinChars is the text floor a default-selector match
// must clear; a custom selector is trusted as-is.
const defaultSelectorMinChars = 100

// ExtractedPage is the structured result of one rendered page
type ExtractedPage struct {
	URL      string
	Title    string
	Markdown string
	Links    []string
}

// ExtractPage pulls title, content and links out of rendered HTML.
// selector, when non-empty, names the content region; otherwise the
// default selector list is walked until one yields enough text.
func ExtractPage(pageURL, html, selector string) (*ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractError{URL: pageURL, Reason: "unparseable HTML: " + err.Error()}
	}

	contentHTML, err := selectContent(doc, pageURL, selector)
	if err != nil {
		return nil, err
	}

	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(contentHTML)
	if err != nil {
		return nil, &ExtractError{URL: pageURL, Reason: "markdown conversion failed: " + err.Error()}
	}
	markdown = strings.TrimSpace(markdown)

	return &ExtractedPage{
		URL:      pageURL,
		Title:    extractTitle(doc),
		Markdown: markdown,
		Links:    extractLinks(doc, pageURL),
	}, nil
}

func selectContent(doc *goquery.Document, pageURL, selector string) (string, error) {
	if selector != "" {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", &ExtractError{URL: pageURL, Reason: "selector matched nothing: " + selector}
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			return "", &ExtractError{URL: pageURL, Reason: "failed to serialize selection"}
		}
		return html, nil
	}

	for _, candidate := range defaultContentSelectors {
		sel := doc.Find(candidate).First()
		if sel.Length() == 0 {
			continue
		}
		if len(strings.TrimSpace(sel.Text())) < defaultSelectorMinChars {
			continue
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			continue
		}
		return html, nil
	}
	return "", &ExtractError{URL: pageURL, Reason: "no content region found"}
}

// extractTitle prefers the document title, then the first heading
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("h2").First().Text())
}

// extractLinks resolves every anchor against the page URL and keeps
// unique absolute http(s) links.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		abs := resolved.String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})
	return links
}
