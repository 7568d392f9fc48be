package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the length limit excel puts on sheet names.
const maxSheetName = 31

// WriteXLSX writes columns and rows as a single-sheet workbook. The first row holds the
// column labels in bold.
func WriteXLSX(w io.Writer, sheet string, columns []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, c := range columns {
			values[j] = cellValue(row[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// cellValue keeps scalars as they are and renders anything else as JSON.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
