// Package store persists per-code outcomes: the corpus of extracted unit
// records plus the classification log of invalid and retry-pending codes.
package store

import (
	"strings"
	"time"
)

// State enumerates the mutually exclusive outcome variants for one code.
type State string

// Outcome states. A code holds exactly one at any time; the only legal
// transitions out of a settled state are Pending -> Present and
// Pending -> Invalid.
const (
	StatePresent State = "present"
	StateInvalid State = "invalid"
	StatePending State = "pending"
)

// Outcome is the per-code record-keeping entry behind planning decisions.
type Outcome struct {
	Code          string    `json:"code"`
	State         State     `json:"state"`
	Attempts      int       `json:"attempts,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitzero"`
}

// notFoundMarkers are the message fragments that signal a permanently
// missing resource rather than a transient fetch problem.
var notFoundMarkers = []string{
	"not found",
	"no longer available",
	"does not exist",
	"status 404",
}

func isNotFound(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
