package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noise is removed before any text is taken from a page. Headers stay
// because resume exports put the candidate's name in one.
const noise = "nav, footer, script, style, noscript, iframe, " +
	".ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup"

// blocks end a line of text when rendered.
const blocks = "br, p, li, div, section, article, h1, h2, h3, h4, h5, h6, tr, dt, dd"

// DefaultTextSelectors are tried in order to find a page's main content.
func DefaultTextSelectors() []string {
	return []string{"main", "article", "[role=main]", ".content", "#content", ".main-content", "#main-content"}
}

// ExtractMainText returns the text of the first element matching one of
// contentSelectors, or of the body when none match. extraNoise selectors are
// removed in addition to the built-in list.
func ExtractMainText(html string, contentSelectors []string, extraNoise ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noise).Remove()
	if len(extraNoise) > 0 {
		doc.Find(strings.Join(extraNoise, ", ")).Remove()
	}

	main := doc.Find("body")
	for _, sel := range contentSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			main = found.First()
			break
		}
	}
	return selectionText(main), nil
}

// HTMLToText strips markup from an HTML fragment, such as a job description
// returned by a search API. Block elements become line breaks.
func HTMLToText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseLines(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseLines(fragment)
	}
	doc.Find("script, style").Remove()
	return selectionText(doc.Selection)
}

func selectionText(s *goquery.Selection) string {
	s.Find(blocks).Each(func(_ int, el *goquery.Selection) {
		el.AppendHtml("\n")
	})
	return collapseLines(s.Text())
}

// collapseLines trims every line, collapses runs of spaces and drops blank lines.
func collapseLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
