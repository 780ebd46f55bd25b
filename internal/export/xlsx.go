package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
	Widths  []float64 // per column, optional
}

// WorkbookXLSX renders sheets into an XLSX workbook. The first sheet is active.
func WorkbookXLSX(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, sh); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sh.Name, err)
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheets[0].Name)
	f.SetActiveSheet(activeIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	for i, h := range sh.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sh.Name, cell, h); err != nil {
			return err
		}
	}
	if len(sh.Headers) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			last, _ := excelize.CoordinatesToCellName(len(sh.Headers), 1)
			_ = f.SetCellStyle(sh.Name, "A1", last, style)
		}
	}

	for r, row := range sh.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sh.Name, cell, v); err != nil {
				return err
			}
		}
	}

	for i, w := range sh.Widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sh.Name, col, col, w)
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
