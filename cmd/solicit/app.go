package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/batch"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/classify"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/metrics"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/reader"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/shredder"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm/langchain"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/solicitation-tracker/internal/repository"
)

// app is the wired pipeline shared by the subcommands.
type app struct {
	cfg        *common.Config
	logger     *slog.Logger
	cache      *cache.Store
	persist    *cache.Persistent
	metrics    *metrics.Service
	reader     *reader.Reader
	tables     *reader.TableExtractor
	classifier *classify.Classifier
	shredder   *shredder.Shredder
	oracle     *llm.StructuredExtractor // nil unless the command needs the LLM
	extractor  *extractor.Extractor
	processor  *batch.Processor
	db         *repository.DB // nil when no DSN is configured
}

func newApp(ctx context.Context, opts *rootOptions, needLLM bool) (*app, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger := newLogger(cfg.SlogLevel())
	if err := cfg.Validate(needLLM); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.metrics = metrics.New(cfg.Metrics.MaxRecords, metrics.WithLogger(logger))

	cacheOpts := []cache.Option{cache.WithObserver(a.metrics), cache.WithLogger(logger)}
	if cfg.Cache.PersistDir != "" {
		p, err := cache.OpenPersistent(cfg.Cache.PersistDir, logger)
		if err != nil {
			return nil, err
		}
		a.persist = p
		cacheOpts = append(cacheOpts, cache.WithPersistence(p))
	}
	a.cache, err = cache.New(cache.Config{
		MaxEntries:        cfg.Cache.MaxEntries,
		DefaultTTL:        cfg.Cache.DefaultTTL,
		ScannedMultiplier: cfg.Cache.ScannedMultiplier,
	}, cacheOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := ocr.NewEngine(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
	}, nil, logger)
	a.reader = reader.New(reader.Config{
		ScannedCharsPerPage: cfg.Reader.ScannedCharsPerPage,
		SamplePages:         cfg.Reader.SamplePages,
	}, engine, a.cache, logger)
	a.tables = reader.NewTableExtractor(a.cache, logger)
	a.classifier = classify.New(logger)
	a.shredder = shredder.New(shredder.Config{
		ChunkSize: cfg.Shredder.ChunkSize,
		Overlap:   cfg.Shredder.Overlap,
	}, logger)

	if needLLM {
		oracle, err := newOracle(cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.oracle = llm.NewStructuredExtractor(oracle, cfg.LLM.Lenient, logger)
		a.extractor = extractor.New(a.reader, a.classifier, a.oracle,
			extractor.WithTables(a.tables),
			extractor.WithCache(a.cache),
			extractor.WithRecorder(a.metrics),
			extractor.WithLogger(logger),
			extractor.WithConfig(extractor.Config{
				MaxContentChars: cfg.Extractor.MaxContentChars,
				MaxTableChars:   cfg.Extractor.MaxTableChars,
			}),
		)
		a.processor = batch.NewProcessor(a.extractor, batch.Config{
			MaxConcurrency:   cfg.Batch.MaxConcurrency,
			MaxRetries:       cfg.Batch.MaxRetries,
			RetryDelay:       cfg.Batch.RetryDelay,
			RateLimitDelay:   cfg.Batch.RateLimitDelay,
			ItemTimeout:      cfg.Batch.ItemTimeout,
			ProgressInterval: cfg.Batch.ProgressInterval,
		}, batch.WithLogger(logger))
	}

	if cfg.Database.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func newOracle(cfg common.LLMConfig, logger *slog.Logger) (llm.Oracle, error) {
	switch cfg.Provider {
	case "langchain":
		return langchain.New(langchain.Config{
			BaseURL:     cfg.BaseURL,
			Token:       cfg.APIKey,
			Model:       cfg.Model,
			Temperature: float64(cfg.Temperature),
		}, logger)
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// batchRepo returns the batch repository, or nil without a database.
func (a *app) batchRepo() repository.BatchRepository {
	if a.db == nil {
		return nil
	}
	return repository.NewBatchRepository(a.db, a.logger)
}

func (a *app) requirementRepo() repository.RequirementRepository {
	if a.db == nil {
		return nil
	}
	return repository.NewRequirementRepository(a.db, a.logger)
}

// saveBatch persists res when a database is configured.
func (a *app) saveBatch(ctx context.Context, res *batch.Result) {
	repo := a.batchRepo()
	if repo == nil || res == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		a.logger.Error("batch encode failed", "batch_id", res.BatchID, "error", err)
		return
	}
	rec := repository.BatchRecord{
		BatchID:         res.BatchID,
		TotalFiles:      res.TotalFiles,
		Successful:      res.Successful,
		Failed:          res.Failed,
		SuccessRate:     res.SuccessRate,
		DurationSeconds: res.Duration,
		StartedAt:       res.StartedAt,
		CompletedAt:     res.CompletedAt,
		ResultJSON:      raw,
	}
	if err := repo.Save(ctx, rec); err != nil {
		a.logger.Error("batch persist failed", "batch_id", res.BatchID, "error", err)
	}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close(a.logger)
	}
	if a.persist != nil {
		if err := a.persist.Close(); err != nil {
			a.logger.Error("cache close failed", "error", err)
		}
	}
}
