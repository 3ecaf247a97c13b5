package identify

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrInputUnavailable marks a workbook that could not be read at all. It is
// fatal to the run: nothing is fetched when the input cannot be trusted.
var ErrInputUnavailable = errors.New("input unavailable")

// Sheet is one tabular sheet: rows of cells with no fixed schema. Cell
// values arrive as strings regardless of their spreadsheet type.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook loads every sheet of an xlsx workbook. Any read failure is
// reported as ErrInputUnavailable with the underlying cause attached.
func ReadWorkbook(path string) ([]Sheet, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrInputUnavailable, path, err)
	}
	defer book.Close()

	var sheets []Sheet
	for _, name := range book.GetSheetList() {
		rows, err := book.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %s: %v", ErrInputUnavailable, name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}
