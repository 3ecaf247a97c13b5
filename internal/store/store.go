package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unitscout/unitscout/internal/hash/sha256"
	"github.com/unitscout/unitscout/internal/unit"
)

// Store owns the record corpus and the classification log under one data
// directory. Workers call it only after finishing an item, and every method
// takes the store mutex, so the file-backed state has a single logical
// writer.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger

	records  map[string]unit.Record
	outcomes map[string]Outcome
}

// Open loads (or initializes) the store under dir. The corpus file rebuilds
// the present set; the classification log restores invalid and pending
// outcomes from earlier runs.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	s := &Store{
		dir:      dir,
		logger:   logger,
		records:  make(map[string]unit.Record),
		outcomes: make(map[string]Outcome),
	}

	records, err := readCorpus(s.corpusPath())
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		s.records[rec.Code] = rec
		s.outcomes[rec.Code] = Outcome{Code: rec.Code, State: StatePresent}
	}

	doc, err := readClassification(s.classificationPath())
	if err != nil {
		return nil, err
	}
	for _, entry := range doc.Invalid {
		if _, present := s.records[entry.Code]; present {
			continue
		}
		s.outcomes[entry.Code] = Outcome{
			Code:          entry.Code,
			State:         StateInvalid,
			Reason:        entry.Reason,
			LastAttemptAt: entry.Timestamp,
		}
	}
	for _, entry := range doc.Pending {
		if _, present := s.records[entry.Code]; present {
			continue
		}
		s.outcomes[entry.Code] = Outcome{
			Code:          entry.Code,
			State:         StatePending,
			Attempts:      entry.Attempts,
			LastError:     entry.LastError,
			LastAttemptAt: entry.LastAttemptAt,
		}
	}
	return s, nil
}

func (s *Store) corpusPath() string         { return filepath.Join(s.dir, "corpus.jsonl") }
func (s *Store) classificationPath() string { return filepath.Join(s.dir, "classification.json") }

// Snapshot returns a copy of the outcome map for the planner.
func (s *Store) Snapshot() map[string]Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Outcome, len(s.outcomes))
	for code, outcome := range s.outcomes {
		out[code] = outcome
	}
	return out
}

// Records returns the corpus snapshot sorted by code, for read-only
// consumers such as the report exporter.
func (s *Store) Records() []unit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]unit.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SaveRecord persists a successful extraction: the prior corpus line for
// the code (if any) is dropped before the new one is appended, and the
// outcome becomes Present regardless of any earlier Pending state.
func (s *Store) SaveRecord(rec unit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, replacing := s.records[rec.Code]
	if err := writeCorpusLine(s.corpusPath(), rec, replacing); err != nil {
		return err
	}
	s.records[rec.Code] = rec
	s.outcomes[rec.Code] = Outcome{Code: rec.Code, State: StatePresent}
	switch {
	case replacing && fingerprint(prior) == fingerprint(rec):
		s.logger.Info("record refreshed, content unchanged", zap.String("code", rec.Code))
	case replacing:
		s.logger.Info("record replaced", zap.String("code", rec.Code))
	default:
		s.logger.Info("record saved", zap.String("code", rec.Code))
	}
	return nil
}

// fingerprint digests a record with its fetch timestamp zeroed, so two
// fetches of an unchanged page compare equal.
func fingerprint(rec unit.Record) string {
	rec.FetchedAt = time.Time{}
	payload, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	digest, err := sha256.New().Hash(payload)
	if err != nil {
		return ""
	}
	return digest
}

// RecordFailure classifies a fetch or extraction failure for one code. A
// missing-resource error settles the code as Invalid; anything else bumps
// the pending attempt counter by one.
func (s *Store) RecordFailure(code string, cause error, at time.Time) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := cause.Error()
	if isNotFound(msg) {
		outcome := Outcome{
			Code:          code,
			State:         StateInvalid,
			Reason:        msg,
			LastAttemptAt: at,
		}
		s.outcomes[code] = outcome
		s.logger.Warn("code marked invalid", zap.String("code", code), zap.String("reason", msg))
		return outcome
	}

	attempts := 1
	if prior, ok := s.outcomes[code]; ok && prior.State == StatePending {
		attempts = prior.Attempts + 1
	}
	outcome := Outcome{
		Code:          code,
		State:         StatePending,
		Attempts:      attempts,
		LastError:     msg,
		LastAttemptAt: at,
	}
	s.outcomes[code] = outcome
	s.logger.Warn("code pending retry",
		zap.String("code", code),
		zap.Int("attempts", attempts),
		zap.String("error", msg),
	)
	return outcome
}

// WriteClassification rewrites the classification log wholesale with the
// current invalid and pending sets plus the finished run's summary.
func (s *Store) WriteClassification(summary RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := classificationDoc{Run: summary}
	codes := make([]string, 0, len(s.outcomes))
	for code := range s.outcomes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		outcome := s.outcomes[code]
		switch outcome.State {
		case StateInvalid:
			doc.Invalid = append(doc.Invalid, invalidEntry{
				Code:      code,
				Reason:    outcome.Reason,
				Timestamp: outcome.LastAttemptAt,
			})
		case StatePending:
			doc.Pending = append(doc.Pending, pendingEntry{
				Code:          code,
				Attempts:      outcome.Attempts,
				LastError:     outcome.LastError,
				LastAttemptAt: outcome.LastAttemptAt,
			})
		}
	}
	return writeClassification(s.classificationPath(), doc)
}
