// Package reader turns a document path into plain text through an ordered
// chain of format strategies, with OCR as the fallback for scanned PDFs
// and images.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/ocr"
)

// Methods reported in Result.Method.
const (
	MethodPDFLayout = "pdf-layout"
	MethodPDFOCR    = "pdf-ocr"
	MethodPDFNative = "pdf-native"
	MethodPlainText = "plain-text"
	MethodDOCX      = "docx"
	MethodXLSX      = "xlsx"
	MethodHTML      = "html"
	MethodImageOCR  = "image-ocr"
)

// Result is what a successful read produces. It is also the value stored
// in the parsed cache partition.
type Result struct {
	Text         string `json:"text"`
	Method       string `json:"method"`
	UsedFallback bool   `json:"used_fallback"` // OCR produced the text
	Pages        int    `json:"pages,omitempty"`
	Scanned      bool   `json:"scanned,omitempty"`
	FromCache    bool   `json:"-"`
}

// Strategy is one link of the reader chain.
type Strategy struct {
	Name    string
	Applies func(ext string) bool
	Read    func(ctx context.Context, path, key string) (Result, error)
}

type Config struct {
	ScannedCharsPerPage int // default 100
	SamplePages         int // default 3
}

// Reader runs the strategy chain. The first strategy returning non-empty
// text wins; a failing strategy is logged and the next one is tried.
type Reader struct {
	cfg        Config
	engine     *ocr.Engine
	cache      *cache.Store
	strategies []Strategy
	logger     *slog.Logger
}

func New(cfg Config, engine *ocr.Engine, store *cache.Store, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScannedCharsPerPage <= 0 {
		cfg.ScannedCharsPerPage = 100
	}
	if cfg.SamplePages <= 0 {
		cfg.SamplePages = 3
	}
	if engine == nil {
		engine = ocr.NewEngine(ocr.Config{}, nil, logger)
	}
	r := &Reader{cfg: cfg, engine: engine, cache: store, logger: logger}
	r.strategies = r.defaultStrategies()
	return r
}

func isFormat(formats ...string) func(string) bool {
	return func(ext string) bool {
		f := constants.MapExtToFormat(ext)
		for _, want := range formats {
			if f == want {
				return true
			}
		}
		return false
	}
}

func (r *Reader) defaultStrategies() []Strategy {
	return []Strategy{
		{Name: MethodPDFLayout, Applies: isFormat(constants.PDF), Read: r.readPDFLayout},
		{Name: MethodPDFNative, Applies: isFormat(constants.PDF), Read: r.readPDFNative},
		{Name: MethodPlainText, Applies: isFormat(constants.TXT, ""), Read: r.readPlainText},
		{Name: MethodDOCX, Applies: isFormat(constants.DOCX), Read: r.readDOCX},
		{Name: MethodXLSX, Applies: isFormat(constants.XLSX), Read: r.readXLSX},
		{Name: MethodHTML, Applies: isFormat(constants.HTML), Read: r.readHTML},
		{Name: MethodImageOCR, Applies: isFormat(constants.IMAGE), Read: r.readImage},
	}
}

// Strategies returns the chain names in order.
func (r *Reader) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

// Read extracts text from path.
func (r *Reader) Read(ctx context.Context, path string) (Result, error) {
	return r.ReadKeyed(ctx, path, cache.FileKey(path))
}

// ReadKeyed is Read with a precomputed file key.
func (r *Reader) ReadKeyed(ctx context.Context, path, key string) (Result, error) {
	if r.cache != nil {
		if res, ok := cache.Load[Result](r.cache, cache.Parsed, key); ok {
			res.FromCache = true
			r.logger.Debug("reader cache hit", "file", filepath.Base(path), "method", res.Method)
			return res, nil
		}
	}

	start := time.Now()
	ext := filepath.Ext(path)
	var errs []error
	for _, s := range r.strategies {
		if !s.Applies(ext) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := s.Read(ctx, path, key)
		if err == nil && res.Text == "" {
			err = errors.New("empty text")
		}
		if err != nil {
			r.logger.Debug("reader strategy failed", "strategy", s.Name, "file", filepath.Base(path), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		if res.Method == "" {
			res.Method = s.Name
		}
		r.logger.Info("reader.ok",
			"file", filepath.Base(path),
			"method", res.Method,
			"used_fallback", res.UsedFallback,
			"chars", len(res.Text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if r.cache != nil {
			cache.Save(r.cache, cache.Parsed, key, res)
		}
		return res, nil
	}

	if len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no reader for extension %q", ext))
	}
	err := common.ContentUnavailable(path, common.JoinErrors(errs...))
	r.logger.Error("reader exhausted", "file", filepath.Base(path), "error", err)
	return Result{}, err
}
