// Package planner classifies requested codes against stored outcomes.
package planner

import (
	"github.com/unitscout/unitscout/internal/store"
)

// DefaultMaxRetries bounds how many runs keep retrying a pending code
// before it is treated as exhausted.
const DefaultMaxRetries = 3

// Plan holds the three disjoint classifications for one run.
type Plan struct {
	Skip  []string
	Retry []string
	New   []string
}

// Queue is the scheduler's work list: retries first, then new codes.
func (p Plan) Queue() []string {
	queue := make([]string, 0, len(p.Retry)+len(p.New))
	queue = append(queue, p.Retry...)
	queue = append(queue, p.New...)
	return queue
}

// Build classifies every requested code. Pure and deterministic: the output
// order follows the requested order, and no I/O happens here.
func Build(requested []string, snapshot map[string]store.Outcome, maxRetries int) Plan {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	var plan Plan
	for _, code := range requested {
		outcome, known := snapshot[code]
		switch {
		case !known:
			plan.New = append(plan.New, code)
		case outcome.State == store.StatePresent:
			plan.Skip = append(plan.Skip, code)
		case outcome.State == store.StateInvalid:
			plan.Skip = append(plan.Skip, code)
		case outcome.Attempts < maxRetries:
			plan.Retry = append(plan.Retry, code)
		default:
			// Pending with the retry budget exhausted.
			plan.Skip = append(plan.Skip, code)
		}
	}
	return plan
}
