package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitscout/unitscout/internal/fetch"
	"github.com/unitscout/unitscout/internal/store"
	"github.com/unitscout/unitscout/internal/unit"
)

const unitHTML = `<html><body>
<h1>%s - Test unit title</h1>
<h2>Application</h2><p>Test application text.</p>
</body></html>`

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (fetch.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()
	for suffix, err := range f.fail {
		if rawURL[len(rawURL)-len(suffix):] == suffix {
			return fetch.Page{}, err
		}
	}
	code := rawURL[len(rawURL)-7:]
	return fetch.Page{URL: rawURL, HTML: fmt.Sprintf(unitHTML, code)}, nil
}

type fakeCloser struct {
	mu     sync.Mutex
	closes int
}

func (c *fakeCloser) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	saved    []unit.Record
	failures map[string]store.Outcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{failures: make(map[string]store.Outcome)}
}

func (s *fakeStore) SaveRecord(rec unit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, rec)
	return nil
}

func (s *fakeStore) RecordFailure(code string, cause error, at time.Time) store.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome := store.Outcome{Code: code, State: store.StatePending, Attempts: 1, LastError: cause.Error(), LastAttemptAt: at}
	if prior, ok := s.failures[code]; ok {
		outcome.Attempts = prior.Attempts + 1
	}
	if errors.Is(cause, fetch.ErrNotFound) || strings.Contains(cause.Error(), "not found") {
		outcome = store.Outcome{Code: code, State: store.StateInvalid, Reason: cause.Error(), LastAttemptAt: at}
	}
	s.failures[code] = outcome
	return outcome
}

func newTestScheduler(f fetch.Fetcher, c Closer, s OutcomeStore, workers int) *Scheduler {
	return New(f, c, s, Config{
		Workers: workers,
		BaseURL: "https://catalog.example/unit",
	}, zap.NewNop())
}

func TestRunProcessesWholeQueue(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	closer := &fakeCloser{}
	st := newFakeStore()
	s := newTestScheduler(fetcher, closer, st, 3)

	counters, err := s.Run(context.Background(), []string{"MARA022", "MARB027", "HLTA011"})
	require.NoError(t, err)
	require.Equal(t, Counters{Checked: 3, Valid: 3}, counters)
	require.Len(t, st.saved, 3)
	require.Equal(t, 1, closer.closes, "session closed exactly once")
}

func TestRunOneFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fail: map[string]error{
		"BADC001": errors.New("timeout waiting for page"),
	}}
	closer := &fakeCloser{}
	st := newFakeStore()
	s := newTestScheduler(fetcher, closer, st, 1)

	counters, err := s.Run(context.Background(), []string{"MARA022", "BADC001", "MARB027"})
	require.NoError(t, err)
	require.Equal(t, Counters{Checked: 3, Valid: 2, Errors: 1}, counters)
	require.Equal(t, store.StatePending, st.failures["BADC001"].State)
}

func TestRunNotFoundCountsInvalid(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fail: map[string]error{
		"INVA001": fmt.Errorf("page INVA001: %w", fetch.ErrNotFound),
	}}
	closer := &fakeCloser{}
	st := newFakeStore()
	s := newTestScheduler(fetcher, closer, st, 1)

	counters, err := s.Run(context.Background(), []string{"INVA001"})
	require.NoError(t, err)
	require.Equal(t, Counters{Checked: 1, Invalid: 1}, counters)
	require.Equal(t, store.StateInvalid, st.failures["INVA001"].State)
}

func TestRunSessionInitIsFatal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fail: map[string]error{
		"MARA022": fmt.Errorf("launch browser: %w", fetch.ErrSessionInit),
	}}
	closer := &fakeCloser{}
	st := newFakeStore()
	s := newTestScheduler(fetcher, closer, st, 1)

	_, err := s.Run(context.Background(), []string{"MARA022", "MARB027"})
	require.ErrorIs(t, err, fetch.ErrSessionInit)
	require.Equal(t, 1, closer.closes)
}

func TestRunRecordKeyedByRequestedCode(t *testing.T) {
	t.Parallel()

	// The page renders content but never states its own code; the corpus
	// entry still lands under the requested one.
	fetcher := &pageFetcher{html: `<html><body><h2>Application</h2><p>text</p></body></html>`}
	closer := &fakeCloser{}
	st := newFakeStore()
	s := newTestScheduler(fetcher, closer, st, 1)

	counters, err := s.Run(context.Background(), []string{"MARA022"})
	require.NoError(t, err)
	require.Equal(t, 1, counters.Valid)
	require.Len(t, st.saved, 1)
	require.Equal(t, "MARA022", st.saved[0].Code)
}

type pageFetcher struct {
	html string
}

func (p *pageFetcher) Fetch(_ context.Context, rawURL string) (fetch.Page, error) {
	return fetch.Page{URL: rawURL, HTML: p.html}, nil
}

func TestDetailURL(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeFetcher{}, &fakeCloser{}, newFakeStore(), 1)
	require.Equal(t, "https://catalog.example/unit/MARA022", s.DetailURL("MARA022"))
}
