// Package report exports the corpus and outcome log as a spreadsheet.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/unitscout/unitscout/internal/store"
	"github.com/unitscout/unitscout/internal/unit"
)

const (
	unitsSheet    = "Units"
	outcomesSheet = "Outcomes"
)

// Write renders the store contents into an xlsx workbook at path. The Units
// sheet holds one row per corpus record; the Outcomes sheet holds one row per
// code the pipeline has ever classified.
func Write(path string, records []unit.Record, outcomes map[string]store.Outcome) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	f.SetSheetName(f.GetSheetName(0), unitsSheet)
	if err := writeUnits(f, records); err != nil {
		return err
	}
	if err := writeOutcomes(f, outcomes); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func writeUnits(f *excelize.File, records []unit.Record) error {
	header := []interface{}{"Code", "Title", "Status", "Release", "Elements", "Superseded By", "Source URL", "Fetched At"}
	if err := f.SetSheetRow(unitsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write units header: %w", err)
	}
	for i, rec := range records {
		supersededBy := ""
		if rec.SupersededBy != nil {
			supersededBy = rec.SupersededBy.Code
		}
		fetched := ""
		if !rec.FetchedAt.IsZero() {
			fetched = rec.FetchedAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			rec.Code,
			rec.Title,
			string(rec.Status),
			rec.Release,
			len(rec.Elements),
			supersededBy,
			rec.SourceURL,
			fetched,
		}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(unitsSheet, cell, &row); err != nil {
			return fmt.Errorf("write unit row %s: %w", rec.Code, err)
		}
	}
	return nil
}

func writeOutcomes(f *excelize.File, outcomes map[string]store.Outcome) error {
	if _, err := f.NewSheet(outcomesSheet); err != nil {
		return fmt.Errorf("create outcomes sheet: %w", err)
	}
	header := []interface{}{"Code", "State", "Attempts", "Reason", "Last Attempt"}
	if err := f.SetSheetRow(outcomesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write outcomes header: %w", err)
	}

	codes := make([]string, 0, len(outcomes))
	for code := range outcomes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for i, code := range codes {
		out := outcomes[code]
		reason := out.Reason
		if reason == "" {
			reason = out.LastError
		}
		last := ""
		if !out.LastAttemptAt.IsZero() {
			last = out.LastAttemptAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			code,
			strings.ToUpper(string(out.State)[:1]) + string(out.State)[1:],
			out.Attempts,
			reason,
			last,
		}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(outcomesSheet, cell, &row); err != nil {
			return fmt.Errorf("write outcome row %s: %w", code, err)
		}
	}
	return nil
}
