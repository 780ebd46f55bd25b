package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/internal/export"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

var csvHeader = []string{"kind", "timestamp", "section", "success", "duration_ms", "ocr_used", "error"}

// Export writes the full, unfiltered history to w.
func (s *Service) Export(w io.Writer, format string) error {
	h := s.snapshot()
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	case FormatCSV:
		return writeCSV(w, h)
	case FormatXLSX:
		b, err := export.WorkbookXLSX(historySheets(h)...)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func writeCSV(w io.Writer, h history) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range h.Extractions {
		_ = cw.Write([]string{"extraction", ts(r.Timestamp), r.Section, strconv.FormatBool(r.Success),
			strconv.FormatInt(r.Duration.Milliseconds(), 10), strconv.FormatBool(r.OCRUsed), r.Error})
	}
	for _, r := range h.Validations {
		_ = cw.Write([]string{"validation", ts(r.Timestamp), r.Section, strconv.FormatBool(r.Success), "", "", r.Error})
	}
	for _, r := range h.Cache {
		_ = cw.Write([]string{"cache", ts(r.Timestamp), r.Partition, strconv.FormatBool(r.Hit), "", "", ""})
	}
	cw.Flush()
	return cw.Error()
}

func historySheets(h history) []export.Sheet {
	ext := export.Sheet{
		Name:    "Extractions",
		Headers: []string{"Timestamp", "Section", "Success", "Duration (ms)", "OCR Used", "Error"},
		Widths:  []float64{26, 14, 10, 14, 10, 60},
	}
	for _, r := range h.Extractions {
		ext.Rows = append(ext.Rows, []any{ts(r.Timestamp), r.Section, r.Success, r.Duration.Milliseconds(), r.OCRUsed, r.Error})
	}
	val := export.Sheet{
		Name:    "Validations",
		Headers: []string{"Timestamp", "Section", "Success", "Error"},
		Widths:  []float64{26, 14, 10, 60},
	}
	for _, r := range h.Validations {
		val.Rows = append(val.Rows, []any{ts(r.Timestamp), r.Section, r.Success, r.Error})
	}
	cache := export.Sheet{
		Name:    "Cache",
		Headers: []string{"Timestamp", "Partition", "Hit"},
		Widths:  []float64{26, 14, 8},
	}
	for _, r := range h.Cache {
		cache.Rows = append(cache.Rows, []any{ts(r.Timestamp), r.Partition, r.Hit})
	}
	return []export.Sheet{ext, val, cache}
}
