// Package identify surfaces candidate unit codes from tabular input.
package identify

import (
	"regexp"
	"sort"
	"strings"
)

// codePattern matches the unit code shape inside uppercased text. Word
// boundaries keep it from matching inside longer alphanumeric runs, so
// over-length tokens fall out here rather than in the post-filter.
var codePattern = regexp.MustCompile(`\b[A-Z]{2,4}[0-9A-Z]{2,10}\b`)

// DefaultDenylist holds uppercase tokens that satisfy the code grammar (or
// show up constantly in source spreadsheets) but never reference a unit.
var DefaultDenylist = []string{
	"SCUBA",
	"COVID19",
	"ISO9001",
	"ISO14001",
	"ISO45001",
	"AS4801",
	"AS2865",
}

// Extractor scans tabular sheets for candidate unit codes.
type Extractor struct {
	denylist map[string]struct{}
}

// NewExtractor builds an Extractor. A nil denylist falls back to
// DefaultDenylist.
func NewExtractor(denylist []string) *Extractor {
	if denylist == nil {
		denylist = DefaultDenylist
	}
	set := make(map[string]struct{}, len(denylist))
	for _, entry := range denylist {
		entry = strings.ToUpper(strings.TrimSpace(entry))
		if entry != "" {
			set[entry] = struct{}{}
		}
	}
	return &Extractor{denylist: set}
}

// FromSheets extracts every candidate code across all cells of the given
// sheets, deduplicated and sorted. The result is a set: running it twice on
// identical input yields identical output.
func (e *Extractor) FromSheets(sheets []Sheet) []string {
	seen := make(map[string]struct{})
	for _, sheet := range sheets {
		for _, row := range sheet.Rows {
			for _, cell := range row {
				for _, code := range e.Tokens(cell) {
					seen[code] = struct{}{}
				}
			}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Tokens returns the valid, non-denylisted codes found in one piece of
// text, normalized to uppercase, in match order. Duplicates are kept; set
// semantics belong to the caller.
func (e *Extractor) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, match := range codePattern.FindAllString(strings.ToUpper(text), -1) {
		if !ValidCode(match) {
			continue
		}
		if _, blocked := e.denylist[match]; blocked {
			continue
		}
		out = append(out, match)
	}
	return out
}

// ValidCode applies the post-filter half of the code grammar: total length
// 6-12, at least 3 digits, and at most a single trailing letter after the
// last digit.
func ValidCode(token string) bool {
	if len(token) < 6 || len(token) > 12 {
		return false
	}
	digits := 0
	lastDigit := -1
	for i, r := range token {
		if r >= '0' && r <= '9' {
			digits++
			lastDigit = i
		}
	}
	if digits < 3 {
		return false
	}
	// No digits at all is already rejected above, so lastDigit is set.
	return len(token)-1-lastDigit <= 1
}
