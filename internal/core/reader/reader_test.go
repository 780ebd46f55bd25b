package reader

import (
	"archive/zip"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/ocr"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    map[string]int
	sample   string
	full     string
	ocrText  string
	textFail bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{calls: map[string]int{}}
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case "pdftotext":
		if f.textFail {
			f.calls["pdftotext-missing"]++
			return nil, []byte("not found"), errors.New("exec: pdftotext: not found")
		}
		if slices.Contains(args, "-f") {
			f.calls["sample"]++
			return []byte(f.sample), nil, nil
		}
		f.calls["full"]++
		return []byte(f.full), nil, nil
	case "pdftoppm":
		f.calls["pdftoppm"]++
		prefix := args[len(args)-1]
		for _, n := range []string{"1", "2"} {
			if err := os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		f.calls["tesseract"]++
		return []byte(f.ocrText), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func newTestReader(t *testing.T, runner ocr.Runner) (*Reader, *cache.Store) {
	t.Helper()
	store, err := cache.New(cache.Config{MaxEntries: 100, DefaultTTL: time.Hour})
	require.NoError(t, err)
	engine := ocr.NewEngine(ocr.Config{MaxPages: 10}, runner, nil)
	return New(Config{}, engine, store, nil), store
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRead_ScannedPDFFallsBackToOCROnce(t *testing.T) {
	runner := newFakeRunner()
	runner.sample = "  \f  \f 12"
	runner.full = "12"
	runner.ocrText = "SECTION L INSTRUCTIONS TO OFFERORS. Proposals shall not exceed 50 pages."
	r, store := newTestReader(t, runner)
	path := writeFile(t, "scanned.pdf", []byte("%PDF-1.4 scanned"))

	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.True(t, res.Scanned)
	assert.Contains(t, res.Text, "SECTION L INSTRUCTIONS")
	assert.Equal(t, 1, runner.count("sample"))
	assert.Equal(t, 1, runner.count("pdftoppm"))
	assert.Equal(t, 2, runner.count("tesseract"), "one call per rendered page")

	scanned, ok := cache.Load[bool](store, cache.Scanned, cache.FileKey(path))
	require.True(t, ok)
	assert.True(t, scanned)

	// Parsed cache short-circuits everything.
	res2, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res2.FromCache)
	assert.Equal(t, res.Text, res2.Text)
	assert.Equal(t, 1, runner.count("pdftoppm"))

	// Without parsed text the cached verdict skips sampling.
	store.Clear(cache.Parsed)
	_, err = r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.count("sample"), "scanned verdict is not re-sampled")
	assert.Equal(t, 2, runner.count("pdftoppm"))
}

func TestRead_TextPDFSkipsOCR(t *testing.T) {
	runner := newFakeRunner()
	runner.sample = strings.Repeat("Offerors shall submit volumes. ", 20)
	runner.full = "SECTION M\n\nEvaluation factors for award.\f" + runner.sample
	r, _ := newTestReader(t, runner)
	path := writeFile(t, "section_m.pdf", []byte("%PDF-1.4 text"))

	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, MethodPDFLayout, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 0, runner.count("pdftoppm"))
}

func TestRead_ChainExhaustedIsContentUnavailable(t *testing.T) {
	runner := newFakeRunner()
	runner.textFail = true
	r, _ := newTestReader(t, runner)
	path := writeFile(t, "broken.pdf", []byte("not really a pdf"))

	_, err := r.Read(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContentUnavailable)
	assert.Equal(t, common.KindContentUnavailable, common.Kind(err))
}

func TestRead_PlainTextAndLegacyEncoding(t *testing.T) {
	r, _ := newTestReader(t, newFakeRunner())

	utf := writeFile(t, "notes.txt", []byte("\xEF\xBB\xBFSTATEMENT OF WORK\n\nThe contractor shall..."))
	res, err := r.Read(context.Background(), utf)
	require.NoError(t, err)
	assert.Equal(t, "STATEMENT OF WORK\n\nThe contractor shall...", res.Text)
	assert.Equal(t, MethodPlainText, res.Method)

	// 0x92 is a right single quote in Windows-1252.
	legacy := writeFile(t, "legacy.txt", []byte("Offeror\x92s proposal"))
	res, err = r.Read(context.Background(), legacy)
	require.NoError(t, err)
	assert.Equal(t, "Offeror’s proposal", res.Text)

	bin := writeFile(t, "blob.bin", []byte{0x00, 0x01, 0x02})
	_, err = r.Read(context.Background(), bin)
	assert.ErrorIs(t, err, common.ErrContentUnavailable)

	empty := writeFile(t, "empty.txt", nil)
	_, err = r.Read(context.Background(), empty)
	assert.ErrorIs(t, err, common.ErrContentUnavailable)
}

func TestRead_ImageUsesOCR(t *testing.T) {
	runner := newFakeRunner()
	runner.ocrText = "CDRL A001  Monthly Status Report"
	r, _ := newTestReader(t, runner)
	path := writeFile(t, "cdrl.png", []byte("png"))

	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "CDRL A001 Monthly Status Report", res.Text)
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>SECTION L</w:t></w:r></w:p>
<w:p><w:r><w:t>Proposals shall be submitted in three volumes.</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Volume</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Page Limit</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Technical</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>30</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`

func writeDOCX(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(docxBody))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRead_DOCX(t *testing.T) {
	r, store := newTestReader(t, newFakeRunner())
	path := writeDOCX(t, "section_l.docx")

	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodDOCX, res.Method)
	assert.Contains(t, res.Text, "SECTION L\n\nProposals shall be submitted in three volumes.")
	assert.Contains(t, res.Text, "| Technical | 30 |")

	els, err := r.Elements(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, els, 3)
	assert.Equal(t, document.ElementTitle, els[0].Type)
	assert.Equal(t, document.ElementTable, els[2].Type)

	tables := NewTableExtractor(store, nil).Extract(context.Background(), path, cache.FileKey(path))
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Volume", "Page Limit"}, tables[0].Headers)
	assert.Equal(t, [][]string{{"Technical", "30"}}, tables[0].Rows)
}

func TestRead_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"CLIN", "Description", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"0001", "Program Management", 12}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, store := newTestReader(t, newFakeRunner())
	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodXLSX, res.Method)
	assert.Contains(t, res.Text, "| 0001 | Program Management | 12 |")

	te := NewTableExtractor(store, nil)
	key := cache.FileKey(path)
	tables := te.Extract(context.Background(), path, key)
	require.Len(t, tables, 1)
	assert.Equal(t, "Sheet1", tables[0].Name)

	cached, ok := cache.Load[[]document.TableData](store, cache.Tables, key)
	require.True(t, ok)
	assert.Equal(t, tables, cached)
}

func TestRead_HTML(t *testing.T) {
	page := `<html><head><script>alert(1)</script></head><body>
<h1>Section B Supplies and Services</h1>
<table><caption>CLIN Schedule</caption>
<tr><th>CLIN</th><th>Description</th></tr>
<tr><td>0001</td><td>Base Year</td></tr>
</table></body></html>`
	path := writeFile(t, "section_b.html", []byte(page))
	r, store := newTestReader(t, newFakeRunner())

	res, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodHTML, res.Method)
	assert.Contains(t, res.Text, "Section B Supplies and Services")
	assert.NotContains(t, res.Text, "alert")

	tables := NewTableExtractor(store, nil).Extract(context.Background(), path, "k")
	require.Len(t, tables, 1)
	assert.Equal(t, "CLIN Schedule", tables[0].Name)
	assert.Equal(t, []string{"CLIN", "Description"}, tables[0].Headers)
	assert.Equal(t, [][]string{{"0001", "Base Year"}}, tables[0].Rows)
}

func TestElementsFromText(t *testing.T) {
	text := "SECTION L\n\nL.1 General instructions.\fL.2 Page limits apply.\n\n\nSECTION M"
	els := ElementsFromText(text, true)
	require.Len(t, els, 4)
	assert.Equal(t, document.Element{Text: "SECTION L", Type: document.ElementTitle, Page: 1}, els[0])
	assert.Equal(t, 1, els[1].Page)
	assert.Equal(t, 2, els[2].Page)
	assert.Equal(t, document.ElementTitle, els[3].Type)

	flat := ElementsFromText("a\n\nb", false)
	assert.Equal(t, 0, flat[1].Page)
}
