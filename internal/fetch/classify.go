package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Class tags a fetch failure for triage. Except for ClassNotFound the tag
// is advisory metadata only and never drives control flow.
type Class string

// Failure classes.
const (
	ClassTimeout  Class = "timeout"
	ClassNetwork  Class = "network"
	ClassParse    Class = "parse"
	ClassNotFound Class = "not_found"
	ClassUnknown  Class = "unknown"
)

// ErrNotFound marks a page that the catalog reports as non-existent. The
// store treats it as terminal for the code.
var ErrNotFound = errors.New("not found")

var classMarkers = []struct {
	class   Class
	markers []string
}{
	{ClassTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ClassNetwork, []string{"connection reset", "connection refused", "no such host", "broken pipe", "unexpected eof", "network is unreachable"}},
	{ClassParse, []string{"parse", "unmarshal", "invalid character", "malformed"}},
}

// Classify inspects an error's message against recognizable substrings.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, ErrNotFound) {
		return ClassNotFound
	}
	msg := strings.ToLower(err.Error())
	for _, entry := range classMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(msg, marker) {
				return entry.class
			}
		}
	}
	return ClassUnknown
}

// FetchError aggregates an exhausted attempt cycle: the last failure, its
// class, and how many attempts were consumed.
type FetchError struct {
	URL      string
	Class    Class
	Attempts int
	Last     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts (%s): %v", e.URL, e.Attempts, e.Class, e.Last)
}

func (e *FetchError) Unwrap() error { return e.Last }
