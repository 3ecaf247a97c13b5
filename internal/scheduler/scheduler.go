// Package scheduler runs the crawl: a bounded worker pool pulling codes
// from one shared queue, fetching, extracting, and persisting outcomes.
package scheduler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/unitscout/unitscout/internal/extract"
	"github.com/unitscout/unitscout/internal/fetch"
	"github.com/unitscout/unitscout/internal/metrics"
	"github.com/unitscout/unitscout/internal/store"
	"github.com/unitscout/unitscout/internal/unit"
)

// maxWorkers caps the pool width regardless of configuration.
const maxWorkers = 5

// Config controls scheduler behavior.
type Config struct {
	Workers   int
	BaseURL   string
	MaxJitter time.Duration
}

// OutcomeStore is the slice of the store the scheduler mutates.
type OutcomeStore interface {
	SaveRecord(rec unit.Record) error
	RecordFailure(code string, cause error, at time.Time) store.Outcome
}

// Closer tears down the shared fetch session after the run.
type Closer interface {
	Close(ctx context.Context) error
}

// Counters are the per-run tallies surfaced in the terminal summary and
// the classification log.
type Counters struct {
	Checked int
	Valid   int
	Invalid int
	Errors  int
}

// Scheduler coordinates the fetch/extract/persist pipeline.
type Scheduler struct {
	fetcher fetch.Fetcher
	closer  Closer
	store   OutcomeStore
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Scheduler. The fetcher is typically a fetch.Cache
// wrapping the engine; closer is the engine itself.
func New(fetcher fetch.Fetcher, closer Closer, st OutcomeStore, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Workers > maxWorkers {
		cfg.Workers = maxWorkers
	}
	metrics.Init()
	return &Scheduler{
		fetcher: fetcher,
		closer:  closer,
		store:   st,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run processes the queue and closes the fetch session exactly once when
// every worker has finished. One code's failure never aborts the run; only
// a render session that cannot initialize is fatal.
func (s *Scheduler) Run(ctx context.Context, queue []string) (Counters, error) {
	var (
		cursor   atomic.Int64
		mu       sync.Mutex
		counters Counters
		fatal    error
		wg       sync.WaitGroup
	)

	setFatal := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
		}
		mu.Unlock()
	}
	aborted := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fatal != nil
	}

	worker := func(id int) {
		defer wg.Done()
		for {
			idx := int(cursor.Add(1)) - 1
			if idx >= len(queue) || ctx.Err() != nil || aborted() {
				return
			}
			code := queue[idx]
			metrics.IncActiveWorkers()
			outcome := s.processCode(ctx, code)
			metrics.DecActiveWorkers()
			if errors.Is(outcome.err, fetch.ErrSessionInit) {
				setFatal(outcome.err)
				return
			}
			mu.Lock()
			counters.Checked++
			switch {
			case outcome.err == nil:
				counters.Valid++
				metrics.ObserveCode("valid")
			case outcome.invalid:
				counters.Invalid++
				metrics.ObserveCode("invalid")
			default:
				counters.Errors++
				metrics.ObserveCode("error")
			}
			mu.Unlock()
			if err := s.jitterPause(ctx); err != nil {
				return
			}
		}
	}

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go worker(i)
	}
	wg.Wait()

	if err := s.closer.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("closing fetch session", zap.Error(err))
	}
	return counters, fatal
}

type itemOutcome struct {
	err     error
	invalid bool
}

// processCode runs one fetch-extract-persist cycle. One call here is one
// scheduler-level try: however many attempts the engine burns internally,
// a failure lands as a single attempt increment in the store.
func (s *Scheduler) processCode(ctx context.Context, code string) itemOutcome {
	url := s.DetailURL(code)
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, fetch.ErrSessionInit) {
			return itemOutcome{err: err}
		}
		recorded := s.store.RecordFailure(code, err, s.now())
		return itemOutcome{err: err, invalid: recorded.State == store.StateInvalid}
	}

	rec := extract.Extract(page.HTML, url)
	if unusable(rec) {
		err := fmt.Errorf("extract %s: no recognizable unit content", code)
		recorded := s.store.RecordFailure(code, err, s.now())
		return itemOutcome{err: err, invalid: recorded.State == store.StateInvalid}
	}
	// The corpus is keyed by the requested code even when the page did not
	// surface its own.
	if rec.Code == "" || rec.Code == "Unknown" {
		rec.Code = code
	}

	if err := s.store.SaveRecord(rec); err != nil {
		s.logger.Error("persist record failed", zap.String("code", code), zap.Error(err))
		recorded := s.store.RecordFailure(code, err, s.now())
		return itemOutcome{err: err, invalid: recorded.State == store.StateInvalid}
	}
	s.logger.Info("unit synced", zap.String("code", code), zap.Bool("rendered", page.Rendered))
	return itemOutcome{}
}

// unusable reports an extraction that produced nothing persistable: no
// identity and no content at all. Such a page counts as a failure, never a
// malformed corpus entry.
func unusable(rec unit.Record) bool {
	return rec.Title == "Unknown" && len(rec.Elements) == 0 && len(rec.Sections) == 0
}

// DetailURL builds the deterministic detail-page URL for one code.
func (s *Scheduler) DetailURL(code string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + code
}

// jitterPause sleeps a small random duration between items so workers do
// not fall into lockstep against the politeness gate.
func (s *Scheduler) jitterPause(ctx context.Context) error {
	if s.cfg.MaxJitter <= 0 {
		return nil
	}
	bound := big.NewInt(int64(s.cfg.MaxJitter))
	n, err := rand.Int(rand.Reader, bound)
	delay := s.cfg.MaxJitter / 2
	if err == nil {
		delay = time.Duration(n.Int64())
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
