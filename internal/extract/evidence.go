package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/unitscout/unitscout/internal/unit"
)

// Depth-based bullet markers applied while flattening nested lists.
const (
	topBullet = "• " // •
	subBullet = "◦ " // ◦
)

// evidenceBlock extracts one evidence block (performance or knowledge
// evidence) as grouped topics. Strategies, in order: labeled definition
// list, heading-and-siblings walk, keyword-anchored full-text scan.
func evidenceBlock(doc *goquery.Document, label string) []unit.EvidenceGroup {
	lines := definitionListLines(doc, label)
	if lines == nil {
		lines = headingWalkLines(doc, label)
	}
	if lines == nil {
		lines = fullTextLines(doc, label)
	}
	return groupEvidence(lines)
}

func definitionListLines(doc *goquery.Document, label string) []string {
	var lines []string
	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(clean(dt.Text())), label) {
			return true
		}
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return false
		}
		lines = collectNodeLines(dd)
		return false
	})
	return lines
}

// headingWalkLines finds the heading matching label and walks forward
// through its siblings, stopping at the next heading of the same or higher
// rank. "No further boundary" means consume to the end of the container.
func headingWalkLines(doc *goquery.Document, label string) []string {
	heading := findHeading(doc, label)
	if heading == nil {
		return nil
	}
	level := headingLevel(heading)
	var lines []string
	for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
		if lvl := headingLevel(sib); lvl > 0 && lvl <= level {
			break
		}
		lines = append(lines, nodeLines(sib)...)
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

func findHeading(doc *goquery.Document, label string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(clean(h.Text())), label) {
			found = h
			return false
		}
		return true
	})
	return found
}

// nodeLines reads one sibling node: paragraph text, expanded list items, or
// the same shapes nested inside containers and tables.
func nodeLines(sel *goquery.Selection) []string {
	switch goquery.NodeName(sel) {
	case "p":
		if text := clean(sel.Text()); text != "" {
			return []string{text}
		}
		return nil
	case "ul", "ol":
		return expandList(sel, 0)
	case "div", "section", "article", "table", "thead", "tbody", "tr", "td", "th", "dl", "dd", "blockquote":
		return collectNodeLines(sel)
	default:
		return nil
	}
}

func collectNodeLines(sel *goquery.Selection) []string {
	var lines []string
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		lines = append(lines, nodeLines(child)...)
	})
	return lines
}

// expandList flattens a list recursively, marking depth with bullets: the
// top level gets •, every nested level gets ◦.
func expandList(list *goquery.Selection, depth int) []string {
	marker := topBullet
	if depth > 0 {
		marker = subBullet
	}
	var lines []string
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if text := ownText(li); text != "" {
			lines = append(lines, marker+text)
		}
		li.ChildrenFiltered("ul, ol").Each(func(_ int, nested *goquery.Selection) {
			lines = append(lines, expandList(nested, depth+1)...)
		})
	})
	return lines
}

func fullTextLines(doc *goquery.Document, label string) []string {
	window := textWindow(doc.Text(), label)
	if window == "" {
		return nil
	}
	var lines []string
	for _, raw := range strings.Split(window, "\n") {
		if line := clean(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// groupEvidence folds flat lines into (topic, sub-items) groups: a
// top-level bullet opens a topic, a nested bullet or continuation line
// appends to the current topic, preamble lines ending in a colon are
// suppressed, and adjacent duplicate topics collapse.
func groupEvidence(lines []string) []unit.EvidenceGroup {
	var groups []unit.EvidenceGroup
	appendItem := func(item string) {
		if item == "" {
			return
		}
		if len(groups) == 0 {
			groups = append(groups, unit.EvidenceGroup{Topic: item})
			return
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, item)
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, topBullet):
			topic := clean(strings.TrimPrefix(line, topBullet))
			if topic == "" {
				continue
			}
			if len(groups) > 0 && groups[len(groups)-1].Topic == topic {
				continue
			}
			groups = append(groups, unit.EvidenceGroup{Topic: topic})
		case strings.HasPrefix(line, subBullet):
			appendItem(clean(strings.TrimPrefix(line, subBullet)))
		case strings.HasSuffix(line, ":"):
			// Preamble such as "Evidence of the ability to:".
		default:
			appendItem(line)
		}
	}
	return groups
}
