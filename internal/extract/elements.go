package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/unitscout/unitscout/internal/unit"
)

// minCriterionLength drops fragments left over from line-break splitting.
const minCriterionLength = 4

// elementNumberPattern matches a bare element ordinal ("3") as opposed to a
// criteria ordinal ("3.1").
var elementNumberPattern = regexp.MustCompile(`^\d+\.?$`)

// parseElements locates the elements and performance criteria table and
// reads it row by row. Three row shapes are supported: 2-column
// (element + criteria cell), 3-column (element, criteria number, criteria
// text), and 4-column continuation rows that inherit the current element.
func parseElements(doc *goquery.Document) []unit.Element {
	table := findElementsTable(doc)
	if table == nil {
		return nil
	}

	var elements []unit.Element
	appendCriterion := func(text string) {
		text = clean(text)
		if text == "" || len(elements) == 0 {
			return
		}
		last := &elements[len(elements)-1]
		last.PerformanceCriteria = append(last.PerformanceCriteria, text)
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		texts := make([]string, cells.Length())
		cells.Each(func(i int, c *goquery.Selection) { texts[i] = clean(c.Text()) })
		if isHeaderRow(texts) {
			return
		}

		switch cells.Length() {
		case 2:
			// A numeric-only first cell never starts a new element.
			if texts[0] != "" && !numericOnly(texts[0]) {
				elements = append(elements, unit.Element{Title: texts[0]})
			}
			for _, criterion := range cellCriteria(cells.Eq(1)) {
				appendCriterion(criterion)
			}
		case 3:
			number := texts[1]
			if texts[0] != "" && !numericOnly(texts[0]) {
				elements = append(elements, unit.Element{Title: texts[0]})
			}
			if texts[2] == "" {
				return
			}
			// A criteria number shaped like an element number marks a
			// continuation row: the text joins the current element's
			// criteria without the ordinal.
			if elementNumberPattern.MatchString(number) {
				appendCriterion(texts[2])
				return
			}
			appendCriterion(strings.TrimSpace(number + " " + texts[2]))
		default:
			// Continuation rows inherit the current element; the trailing
			// two cells carry the criteria ordinal and text.
			number := texts[len(texts)-2]
			text := texts[len(texts)-1]
			if text == "" {
				return
			}
			if numericOnly(number) && !elementNumberPattern.MatchString(number) {
				appendCriterion(strings.TrimSpace(number + " " + text))
				return
			}
			appendCriterion(text)
		}
	})
	return elements
}

func isHeaderRow(texts []string) bool {
	joined := strings.ToLower(strings.Join(texts, " "))
	return strings.Contains(joined, "element") && strings.Contains(joined, "performance criteria")
}

// findElementsTable returns the innermost table mentioning both "elements"
// and "performance criteria", so a page-layout table wrapping the real one
// is skipped.
func findElementsTable(doc *goquery.Document) *goquery.Selection {
	matches := func(t *goquery.Selection) bool {
		text := strings.ToLower(t.Text())
		return strings.Contains(text, "element") && strings.Contains(text, "performance criteria")
	}

	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if !matches(t) {
			return true
		}
		nested := false
		t.Find("table").Each(func(_ int, inner *goquery.Selection) {
			if matches(inner) {
				nested = true
			}
		})
		if nested {
			return true
		}
		found = t
		return false
	})
	return found
}

// cellCriteria reads one criteria cell: a nested list wins, otherwise the
// text is split on line breaks with a minimum-length filter.
func cellCriteria(cell *goquery.Selection) []string {
	var out []string
	if items := cell.Find("li"); items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			if text := ownText(li); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
	for _, line := range strings.Split(textWithBreaks(cell), "\n") {
		line = clean(line)
		if len(line) >= minCriterionLength {
			out = append(out, line)
		}
	}
	return out
}

func numericOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// textWithBreaks renders a cell to text while keeping line-break structure:
// <br> and block boundaries become newlines.
func textWithBreaks(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "br":
				b.WriteString("\n")
			case "#text":
				b.WriteString(c.Text())
			case "p", "div", "li", "tr":
				b.WriteString("\n")
				walk(c)
				b.WriteString("\n")
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return b.String()
}
