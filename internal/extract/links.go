package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/unitscout/unitscout/internal/unit"
)

// supersessionLinks scans outbound links to sibling unit pages and
// classifies them by the phrase in the enclosing text. At most one link per
// relation is kept; the first match wins.
func supersessionLinks(doc *goquery.Document, sourceURL string) (supersededBy, supersedes *unit.Link) {
	base, _ := url.Parse(sourceURL)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		code := linkCode(a)
		if code == "" {
			return true
		}
		enclosing := strings.ToLower(clean(a.Parent().Text()))
		link := &unit.Link{Code: code, URL: resolveHref(base, a)}
		switch {
		// "superseded by" contains "supersedes"-adjacent text, so it is
		// checked first.
		case supersededBy == nil && strings.Contains(enclosing, "superseded by"):
			supersededBy = link
		case supersedes == nil && strings.Contains(enclosing, "supersedes"):
			supersedes = link
		}
		return supersededBy == nil || supersedes == nil
	})
	return supersededBy, supersedes
}

// linkCode pulls the target unit code out of the link text, falling back to
// the last path segment of the href.
func linkCode(a *goquery.Selection) string {
	if codes := tokenizer.Tokens(a.Text()); len(codes) > 0 {
		return codes[0]
	}
	href, _ := a.Attr("href")
	if idx := strings.LastIndex(strings.TrimRight(href, "/"), "/"); idx >= 0 {
		if codes := tokenizer.Tokens(href[idx+1:]); len(codes) > 0 {
			return codes[0]
		}
	}
	return ""
}

func resolveHref(base *url.URL, a *goquery.Selection) string {
	href, ok := a.Attr("href")
	if !ok || href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		return base.ResolveReference(parsed).String()
	}
	return parsed.String()
}
