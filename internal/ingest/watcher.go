package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	Extensions  map[string]struct{}
	InitialScan bool          // emit files already present under Roots
	Debounce    time.Duration // coalesce rapid write bursts
	Logger      *slog.Logger
}

// Watch emits solicitation files as they appear or change under the
// configured roots. Both channels close when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig) (<-chan document.File, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.Extensions == nil {
		cfg.Extensions = constants.AllowedExtensions
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	evCh := make(chan document.File, 256)
	errCh := make(chan error, 1)

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && Allowed(path, cfg.Extensions) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			pending = map[string]struct{}{}
			timer   *time.Timer
			wg      sync.WaitGroup
		)
		defer func() {
			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			mu.Unlock()
			wg.Wait()
			close(evCh)
			close(errCh)
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(path string) {
			select {
			case evCh <- document.NewFile(path):
			case <-ctx.Done():
			}
		}
		flush := func() {
			mu.Lock()
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			timer = nil
			mu.Unlock()
			for _, p := range paths {
				emit(p)
			}
		}

		for _, p := range initial {
			emit(p)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := addDir(e.Name); err != nil {
							logger.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !Allowed(e.Name, cfg.Extensions) || IsHidden(e.Name) {
					continue
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if cfg.Debounce <= 0 {
					emit(e.Name)
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if timer == nil {
					wg.Add(1)
					timer = time.AfterFunc(cfg.Debounce, func() {
						defer wg.Done()
						flush()
					})
				}
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
