package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// RunSummary carries the terminal counters for one sync run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checked    int       `json:"checked"`
	Valid      int       `json:"valid"`
	Invalid    int       `json:"invalid"`
	Errors     int       `json:"errors"`
}

type invalidEntry struct {
	Code      string    `json:"code"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type pendingEntry struct {
	Code          string    `json:"code"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// classificationDoc is the durable triage surface, rewritten wholesale
// after every run.
type classificationDoc struct {
	Run     RunSummary     `json:"run"`
	Invalid []invalidEntry `json:"invalid"`
	Pending []pendingEntry `json:"pending"`
}

func readClassification(path string) (classificationDoc, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return classificationDoc{}, nil
	}
	if err != nil {
		return classificationDoc{}, fmt.Errorf("read classification %s: %w", path, err)
	}
	var doc classificationDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return classificationDoc{}, fmt.Errorf("parse classification %s: %w", path, err)
	}
	return doc, nil
}

func writeClassification(path string, doc classificationDoc) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write classification %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename classification %s: %w", tmp, err)
	}
	return nil
}
