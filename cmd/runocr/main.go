package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/reader"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

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
	// no cache: every run exercises the full strategy chain
	r := reader.New(reader.Config{
		ScannedCharsPerPage: cfg.Reader.ScannedCharsPerPage,
		SamplePages:         cfg.Reader.SamplePages,
	}, engine, nil, logger)

	start := time.Now()
	res, err := r.Read(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "file", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"file", path,
		"method", res.Method,
		"used_fallback", res.UsedFallback,
		"scanned", res.Scanned,
		"pages", res.Pages,
		"chars", len([]rune(res.Text)),
		"strategies", r.Strategies(),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(res.Text)
}
