package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

func (r *Reader) readXLSX(_ context.Context, path, _ string) (Result, error) {
	tables, err := xlsxTables(path)
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	for _, t := range tables {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t.Markdown())
	}
	return Result{Text: strings.TrimSpace(b.String()), Method: MethodXLSX, Pages: len(tables)}, nil
}

// xlsxTables returns one table per non-empty sheet; the first row is the header.
func xlsxTables(path string) ([]document.TableData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func(f *excelize.File) { _ = f.Close() }(f)

	var tables []document.TableData
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		rows = dropEmptyRows(rows)
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, document.TableData{
			Source:  path,
			Name:    sheet,
			Headers: rows[0],
			Rows:    rows[1:],
		})
	}
	return tables, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
