package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PageBreak separates pages in OCR output.
const PageBreak = "\n\f\n"

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // OCR page cap, 0 = no limit
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text
}

// Engine wraps the poppler and tesseract binaries.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// MaxPages is the configured OCR page cap.
func (e *Engine) MaxPages() int { return e.cfg.MaxPages }

// PDFText runs pdftotext in layout mode. lastPage <= 0 reads to the end.
// pages counts form-feed separated pages in the output.
func (e *Engine) PDFText(ctx context.Context, path string, firstPage, lastPage int) (text string, pages int, err error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if firstPage > 0 {
		args = append(args, "-f", strconv.Itoa(firstPage))
	}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, args...)
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	text = strings.TrimRight(string(out), "\f")
	if text == "" {
		return "", 0, nil
	}
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil
}

// PDFOCR rasterizes up to maxPages pages and runs tesseract on each.
func (e *Engine) PDFOCR(ctx context.Context, path string, maxPages int) (text string, pages int, err error) {
	tmpDir, err := os.MkdirTemp("", "solicit-pp-*")
	if err != nil {
		return "", 0, err
	}
	defer func(dir string) {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", rmErr)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, path, prefix)

	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <tmp/page>
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, args...); err != nil {
		return "", 0, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero padded on large docs)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}
	if len(matches) == 0 {
		return "", 0, fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	for _, img := range matches {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		txt, err := e.Image(ctx, img)
		if err != nil {
			e.logger.Warn("page ocr failed", "image", filepath.Base(img), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString(PageBreak)
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), nil
}

// Image runs tesseract on a single raster image and returns normalized text.
func (e *Engine) Image(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return Normalize(string(out)), nil
}
