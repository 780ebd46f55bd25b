// Package ingest turns a directory of solicitation files into the ordered
// file list the extractor and batch processor consume.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/cache"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

type Options struct {
	Extensions   map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	SkipHidden   bool
	NonRecursive bool
	Dedupe       bool // drop files whose content hash was already seen
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      int `json:"scanned"`
	Matched      int `json:"matched"`
	Deduplicated int `json:"deduplicated"`
	Failed       int `json:"failed"`
}

// Directory walks root in lexical order and returns the matching files.
// Unreadable entries are logged and counted, never fatal.
func Directory(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]document.File, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}
	exts := opts.Extensions
	if exts == nil {
		exts = constants.AllowedExtensions
	}

	var files []document.File
	seen := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("ingest walk error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && opts.NonRecursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if !Allowed(path, exts) {
			return nil
		}
		stats.Matched++

		if opts.Dedupe {
			sum, err := cache.HashFile(path)
			if err != nil {
				logger.Warn("ingest hash failed", "path", path, "error", err)
				stats.Failed++
				return nil
			}
			if first, dup := seen[sum]; dup {
				logger.Info("ingest duplicate skipped", "path", path, "same_as", first)
				stats.Deduplicated++
				return nil
			}
			seen[sum] = path
		}
		files = append(files, document.NewFile(path))
		return nil
	})
	if err != nil {
		return files, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	logger.Info("ingest directory done",
		"root", root, "files", len(files), "scanned", stats.Scanned, "deduplicated", stats.Deduplicated)
	return files, stats, nil
}

// Paths converts explicit paths (files or directories) into one file list,
// expanding directories with opts.
func Paths(ctx context.Context, paths []string, opts Options, logger *slog.Logger) ([]document.File, error) {
	var out []document.File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, document.NewFile(p))
			continue
		}
		files, _, err := Directory(ctx, p, opts, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// Allowed reports whether path's extension is in exts.
func Allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
