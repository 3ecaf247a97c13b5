package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/unitscout/unitscout/internal/unit"
)

// readCorpus loads the line-delimited record corpus. A missing file is an
// empty corpus; a malformed line aborts the load rather than silently
// dropping records.
func readCorpus(path string) ([]unit.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	var records []unit.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec unit.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("corpus %s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", path, err)
	}
	return records, nil
}

// writeCorpusLine appends one serialized record. When the code is already
// present the prior line is removed first (replace, not merge): the file is
// rewritten without it to a temp file which is then renamed into place.
func writeCorpusLine(path string, rec unit.Record, replacing bool) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.Code, err)
	}

	if replacing {
		existing, err := readCorpus(path)
		if err != nil {
			return err
		}
		kept := existing[:0]
		for _, old := range existing {
			if old.Code != rec.Code {
				kept = append(kept, old)
			}
		}
		if err := rewriteCorpus(path, kept); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open corpus %s for append: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("append corpus %s: %w", path, err)
	}
	return nil
}

func rewriteCorpus(path string, records []unit.Record) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal record %s: %w", rec.Code, err)
		}
		if _, err := w.Write(append(payload, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", tmp, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
