package reader

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

// TableExtractor lifts tables out of XLSX, HTML and DOCX files. Other
// formats yield no tables. Results are cached in the tables partition.
type TableExtractor struct {
	cache  *cache.Store
	logger *slog.Logger
}

func NewTableExtractor(store *cache.Store, logger *slog.Logger) *TableExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableExtractor{cache: store, logger: logger}
}

// Extract never fails; a format error is logged and yields no tables.
func (t *TableExtractor) Extract(ctx context.Context, path, key string) []document.TableData {
	if t.cache != nil {
		if tables, ok := cache.Load[[]document.TableData](t.cache, cache.Tables, key); ok {
			return tables
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	var (
		tables []document.TableData
		err    error
	)
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.XLSX:
		tables, err = xlsxTables(path)
	case constants.HTML:
		tables, err = htmlTables(path)
	case constants.DOCX:
		var doc docxContent
		doc, err = parseDOCX(path)
		tables = doc.tables
	default:
		return nil
	}
	if err != nil {
		t.logger.Warn("table extraction failed", "file", filepath.Base(path), "error", err)
		return nil
	}

	if t.cache != nil {
		cache.Save(t.cache, cache.Tables, key, tables)
	}
	t.logger.Debug("tables extracted", "file", filepath.Base(path), "count", len(tables))
	return tables
}
