package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/unitscout/unitscout/internal/unit"
)

// sectionLabels are the known section boundaries used by the full-text
// fallback scanner.
var sectionLabels = []string{
	"modification history",
	"application",
	"pre-requisite",
	"prerequisite",
	"competency field",
	"unit sector",
	"elements and performance criteria",
	"foundation skills",
	"unit mapping information",
	"licensing",
	"assessment requirements",
	"performance evidence",
	"knowledge evidence",
	"assessment conditions",
}

// sectionText extracts one free-text section by label: definition list,
// then heading walk, then a full-text window bounded by the next known
// section label.
func sectionText(doc *goquery.Document, label string) string {
	if lines := definitionListLines(doc, label); lines != nil {
		return joinLines(lines)
	}
	if lines := headingWalkLines(doc, label); lines != nil {
		return joinLines(lines)
	}
	window := clean(textWindow(doc.Text(), label))
	return strings.TrimSpace(strings.TrimLeft(window, ": "))
}

func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// textWindow returns the slice of text between label and the next known
// section label. A missing closing boundary means the window runs to the
// end of the document; that is tolerated, not an error.
func textWindow(text, label string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, label)
	if idx < 0 {
		return ""
	}
	start := idx + len(label)
	end := len(text)
	for _, boundary := range sectionLabels {
		if boundary == label || strings.Contains(boundary, label) || strings.Contains(label, boundary) {
			continue
		}
		if pos := strings.Index(lower[start:], boundary); pos >= 0 && start+pos < end {
			end = start + pos
		}
	}
	return text[start:end]
}

// genericSections walks every heading in document order and captures its
// immediate paragraphs and list items. Lists are flattened one level;
// nested lists are ignored at this stage. This is the lossy-tolerant
// backstop for content no targeted strategy captures.
func genericSections(doc *goquery.Document) []unit.Section {
	var sections []unit.Section
	doc.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		heading := clean(h.Text())
		if heading == "" {
			return
		}
		sec := unit.Section{Heading: heading, Level: headingLevel(h)}
		for sib := h.Next(); sib.Length() > 0; sib = sib.Next() {
			if headingLevel(sib) > 0 {
				break
			}
			switch goquery.NodeName(sib) {
			case "p":
				if text := clean(sib.Text()); text != "" {
					sec.Paragraphs = append(sec.Paragraphs, text)
				}
			case "ul", "ol":
				sib.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
					if text := ownText(li); text != "" {
						sec.Items = append(sec.Items, text)
					}
				})
			}
		}
		sections = append(sections, sec)
	})
	return sections
}
