package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unitscout/unitscout/internal/store"
)

func TestBuildClassification(t *testing.T) {
	t.Parallel()

	snapshot := map[string]store.Outcome{
		"PRESENT01":  {Code: "PRESENT01", State: store.StatePresent},
		"INVALID001": {Code: "INVALID001", State: store.StateInvalid, Reason: "not found"},
		"RETRY0001":  {Code: "RETRY0001", State: store.StatePending, Attempts: 2},
		"SPENT0001":  {Code: "SPENT0001", State: store.StatePending, Attempts: 3},
	}
	requested := []string{"PRESENT01", "INVALID001", "RETRY0001", "SPENT0001", "FRESH0001"}

	plan := Build(requested, snapshot, 3)
	require.Equal(t, []string{"PRESENT01", "INVALID001", "SPENT0001"}, plan.Skip)
	require.Equal(t, []string{"RETRY0001"}, plan.Retry)
	require.Equal(t, []string{"FRESH0001"}, plan.New)
}

func TestQueueOrdersRetriesFirst(t *testing.T) {
	t.Parallel()

	plan := Plan{Retry: []string{"RETRY0001"}, New: []string{"FRESH0001", "FRESH0002"}}
	require.Equal(t, []string{"RETRY0001", "FRESH0001", "FRESH0002"}, plan.Queue())
}

func TestBuildDefaultsMaxRetries(t *testing.T) {
	t.Parallel()

	snapshot := map[string]store.Outcome{
		"PEND00001": {Code: "PEND00001", State: store.StatePending, Attempts: 2},
	}
	plan := Build([]string{"PEND00001"}, snapshot, 0)
	require.Equal(t, []string{"PEND00001"}, plan.Retry)
}

func TestPresentNeverRetriedOrNew(t *testing.T) {
	t.Parallel()

	snapshot := map[string]store.Outcome{
		"MARB027": {Code: "MARB027", State: store.StatePresent},
	}
	plan := Build([]string{"MARB027"}, snapshot, 3)
	require.Empty(t, plan.Retry)
	require.Empty(t, plan.New)
	require.Equal(t, []string{"MARB027"}, plan.Skip)
}
