// Package extract turns rendered detail-page HTML into a normalized unit
// record. Source pages vary by authoring template, so every field is read
// through an ordered chain of fallback strategies; the first non-empty
// result wins and a chain that strikes out leaves the field empty rather
// than failing.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/unitscout/unitscout/internal/identify"
	"github.com/unitscout/unitscout/internal/unit"
)

const unknown = "Unknown"

var tokenizer = identify.NewExtractor(nil)

// Extract builds a Record from rendered HTML. It never fails: malformed or
// empty input yields a record with Code and Title set to "Unknown" and
// every other field left empty. The fetch timestamp is stamped here, at
// extraction time.
func Extract(html, sourceURL string) unit.Record {
	rec := unit.Record{
		Code:      unknown,
		Title:     unknown,
		SourceURL: sourceURL,
		FetchedAt: time.Now().UTC(),
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil || doc == nil {
		return rec
	}

	if code, title := identity(doc); code != "" {
		rec.Code = code
		if title != "" {
			rec.Title = title
		}
	}
	rec.Status = status(doc)
	rec.Release = release(doc)
	rec.SupersededBy, rec.Supersedes = supersessionLinks(doc, sourceURL)
	rec.Elements = parseElements(doc)
	rec.PerformanceEvidence = evidenceBlock(doc, "performance evidence")
	rec.KnowledgeEvidence = evidenceBlock(doc, "knowledge evidence")
	rec.AssessmentConditions = sectionText(doc, "assessment conditions")
	rec.Licensing = sectionText(doc, "licensing")
	rec.FoundationSkills = sectionText(doc, "foundation skills")
	rec.Application = sectionText(doc, "application")
	rec.UnitSector = sectionText(doc, "unit sector")
	rec.Prerequisites = prerequisites(doc)
	rec.Sections = genericSections(doc)
	return rec
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

// codeTitleSplit matches the generic "CODE – Title" heading shape with any
// common dash.
var codeTitleSplit = regexp.MustCompile(`^([A-Z]{2,4}[0-9A-Z]{2,10})\s*[-–—]\s*(.+)$`)

// identity resolves code and title: header-subtitle pattern, then the
// "Unit of Competency: CODE" heading, then a generic "CODE – Title" split.
func identity(doc *goquery.Document) (string, string) {
	// Header with a subtitle element carrying the title.
	header := doc.Find("header h1").First()
	if header.Length() > 0 {
		if codes := tokenizer.Tokens(header.Text()); len(codes) > 0 {
			title := clean(doc.Find("header .subtitle").First().Text())
			if title != "" {
				return codes[0], title
			}
		}
	}

	var code, title string
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := clean(h.Text())
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "unit of competency") {
			if codes := tokenizer.Tokens(text); len(codes) > 0 {
				code = codes[0]
				title = clean(h.Next().Filter(headingSelector).Text())
				if title == "" {
					title = titleFromDocumentTitle(doc, code)
				}
				return false
			}
		}
		if m := codeTitleSplit.FindStringSubmatch(text); m != nil && identify.ValidCode(m[1]) {
			code = m[1]
			title = clean(m[2])
			return false
		}
		return true
	})
	return code, title
}

func titleFromDocumentTitle(doc *goquery.Document, code string) string {
	text := clean(doc.Find("title").First().Text())
	text = strings.TrimSpace(strings.TrimPrefix(text, code))
	return strings.TrimSpace(strings.TrimLeft(text, "-–— :"))
}

// statusVocabulary is the closed set of lifecycle states a badge may carry.
var statusVocabulary = []string{unit.StatusCurrent, unit.StatusSuperseded, unit.StatusDeleted}

var statusLabelPattern = regexp.MustCompile(`(?i)status\s*[:\s]\s*(current|superseded|deleted)`)

func status(doc *goquery.Document) string {
	found := ""
	doc.Find(".status, .badge, .tag, .label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(clean(s.Text()))
		for _, v := range statusVocabulary {
			if text == v {
				found = v
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}
	if m := statusLabelPattern.FindStringSubmatch(doc.Text()); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

var releasePattern = regexp.MustCompile(`(?i)release\s*[:#]?\s*(\d+)`)

func release(doc *goquery.Document) string {
	if m := releasePattern.FindStringSubmatch(doc.Text()); m != nil {
		return m[1]
	}
	return ""
}

func prerequisites(doc *goquery.Document) []string {
	text := sectionText(doc, "prerequisite")
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var codes []string
	for _, code := range tokenizer.Tokens(text) {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// clean collapses all runs of whitespace to single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ownText returns an element's text excluding any nested lists, so list
// items can be read without dragging their children along.
func ownText(sel *goquery.Selection) string {
	return clean(sel.Contents().Not("ul, ol").Text())
}

// headingLevel maps h1..h6 to 1..6; anything else reports 0.
func headingLevel(sel *goquery.Selection) int {
	name := goquery.NodeName(sel)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}
