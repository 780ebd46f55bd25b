// Package extractor turns solicitation files into per-section structured
// payloads: read, classify, prompt the oracle, validate, cache.
package extractor

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/reader"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

// ContentReader is the subset of *reader.Reader the extractor needs.
type ContentReader interface {
	ReadKeyed(ctx context.Context, path, key string) (reader.Result, error)
}

// TableSource supplies tables for table-heavy sections.
type TableSource interface {
	Extract(ctx context.Context, path, key string) []document.TableData
}

type Classifier interface {
	Classify(filename, content string) constants.SectionCategory
}

// Recorder receives extraction and validation outcomes.
type Recorder interface {
	RecordExtraction(section string, success bool, duration time.Duration, ocrUsed bool, err error)
	RecordValidation(section string, success bool, err error)
}

type Config struct {
	MaxContentChars int // default 100000
	MaxTableChars   int // default 20000
}

type Extractor struct {
	cfg        Config
	reader     ContentReader
	tables     TableSource
	classifier Classifier
	oracle     *llm.StructuredExtractor
	cache      *cache.Store
	metrics    Recorder
	logger     *slog.Logger
}

type Option func(*Extractor)

func WithTables(t TableSource) Option   { return func(e *Extractor) { e.tables = t } }
func WithCache(s *cache.Store) Option   { return func(e *Extractor) { e.cache = s } }
func WithRecorder(r Recorder) Option    { return func(e *Extractor) { e.metrics = r } }
func WithLogger(l *slog.Logger) Option  { return func(e *Extractor) { e.logger = l } }
func WithConfig(cfg Config) Option      { return func(e *Extractor) { e.cfg = cfg } }

func New(r ContentReader, c Classifier, oracle *llm.StructuredExtractor, opts ...Option) *Extractor {
	e := &Extractor{reader: r, classifier: c, oracle: oracle}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.cfg.MaxContentChars <= 0 {
		e.cfg.MaxContentChars = 100000
	}
	if e.cfg.MaxTableChars <= 0 {
		e.cfg.MaxTableChars = 20000
	}
	return e
}

// FileResult is the outcome for one file.
type FileResult struct {
	File         document.File             `json:"file"`
	Category     constants.SectionCategory `json:"category"`
	Section      constants.SectionKey      `json:"section,omitempty"` // empty for unmapped categories
	Payload      llm.SectionPayload        `json:"payload,omitempty"`
	Validated    bool                      `json:"validated"`
	FromCache    bool                      `json:"from_cache"`
	Method       string                    `json:"method"`
	UsedFallback bool                      `json:"used_fallback"`
	Truncated    bool                      `json:"truncated,omitempty"`
	Text         string                    `json:"-"`
}

// ExtractFile runs the pipeline for one file. Unreadable content and oracle
// failures are returned as errors so the caller can retry. A reply that
// fails its schema is not an error: the result carries an unvalidated
// payload instead.
func (e *Extractor) ExtractFile(ctx context.Context, f document.File) (FileResult, error) {
	start := time.Now()
	out := FileResult{File: f}
	key := cache.FileKey(f.Path)

	read, err := e.reader.ReadKeyed(ctx, f.Path, key)
	if err != nil {
		e.record("", false, start, false, err)
		return out, err
	}
	out.Method = read.Method
	out.UsedFallback = read.UsedFallback

	text := read.Text
	if n := utf8.RuneCountInString(text); n > e.cfg.MaxContentChars {
		e.logger.Warn("content truncated",
			"file", f.Filename, "chars", n, "max_chars", e.cfg.MaxContentChars)
		text = truncateRunes(text, e.cfg.MaxContentChars)
		out.Truncated = true
	}
	out.Text = text

	out.Category = e.classifier.Classify(f.Filename, text)
	section, ok := out.Category.Key()
	if !ok {
		e.logger.Info("extractor.skip_unmapped", "file", f.Filename, "category", out.Category)
		return out, nil
	}
	out.Section = section

	ckey := cache.ExtractionKey(key, string(section))
	if e.cache != nil {
		if p, ok := cache.Load[llm.SectionPayload](e.cache, cache.Extraction, ckey); ok {
			out.Payload, out.Validated, out.FromCache = p, true, true
			e.logger.Debug("extraction cache hit", "file", f.Filename, "section", section)
			return out, nil
		}
	}

	var tables string
	if out.Category.TableHeavy() && e.tables != nil {
		tables = e.renderTables(ctx, f, key)
	}

	req, err := llm.SectionRequest(section, f.Filename, text, tables)
	if err != nil {
		return out, common.WrapError(err, "build prompt")
	}

	payload, err := e.oracle.ExtractSection(ctx, section, req)
	switch {
	case err == nil:
		out.Payload, out.Validated = payload, true
		if e.cache != nil {
			e.cache.Set(cache.Extraction, ckey, payload)
		}
		e.validation(section, true, nil)
		e.record(section, true, start, read.UsedFallback, nil)
		e.logger.Info("extractor.ok", "file", f.Filename, "section", section,
			"elapsed_ms", time.Since(start).Milliseconds())
		return out, nil

	case llm.IsSchemaFailure(err):
		out.Payload = payload
		e.validation(section, false, err)
		e.record(section, false, start, read.UsedFallback, err)
		e.logger.Warn("extractor.unvalidated", "file", f.Filename, "section", section, "error", err)
		return out, nil

	default:
		e.record(section, false, start, read.UsedFallback, err)
		e.logger.Error("extractor.oracle_failed", "file", f.Filename, "section", section, "error", err)
		return out, err
	}
}

// ExtractAll runs ExtractFile over files in order. Per-file failures are
// recorded in the result and never abort the pass.
func (e *Extractor) ExtractAll(ctx context.Context, files []document.File) *Result {
	res := NewResult()
	for _, f := range files {
		if ctx.Err() != nil {
			res.AddError(f, ctx.Err())
			continue
		}
		fr, err := e.ExtractFile(ctx, f)
		if err != nil {
			res.AddError(f, err)
			continue
		}
		res.Add(fr)
	}
	e.logger.Info("extractor.done",
		"files", len(files),
		"sections", len(res.Sections),
		"sources", len(res.Sources),
		"errors", len(res.Errors),
	)
	return res
}

func (e *Extractor) renderTables(ctx context.Context, f document.File, key string) string {
	tables := e.tables.Extract(ctx, f.Path, key)
	if len(tables) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tables {
		md := t.Markdown()
		if b.Len()+len(md) > e.cfg.MaxTableChars {
			e.logger.Warn("table markdown truncated", "file", f.Filename, "max_chars", e.cfg.MaxTableChars)
			break
		}
		b.WriteString(md)
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Extractor) record(section constants.SectionKey, ok bool, start time.Time, ocrUsed bool, err error) {
	if e.metrics == nil {
		return
	}
	name := string(section)
	if name == "" {
		name = "unknown"
	}
	e.metrics.RecordExtraction(name, ok, time.Since(start), ocrUsed, err)
}

func (e *Extractor) validation(section constants.SectionKey, ok bool, err error) {
	if e.metrics != nil {
		e.metrics.RecordValidation(string(section), ok, err)
	}
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
