package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// renderDetector decides whether a probe response already carries the
// content a render would produce. Pages below the byte threshold or missing
// the structural marker get promoted to the headless renderer.
type renderDetector struct {
	minHTMLBytes int
	marker       string
}

func newRenderDetector(minBytes int, marker string) *renderDetector {
	return &renderDetector{
		minHTMLBytes: minBytes,
		marker:       strings.TrimSpace(marker),
	}
}

// complete reports whether the probe body can be used as-is.
func (d *renderDetector) complete(body []byte) bool {
	if d == nil || len(body) == 0 {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return false
	}
	if d.marker == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find(d.marker).Length() > 0
}
