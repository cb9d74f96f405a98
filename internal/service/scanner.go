package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/port"
)

// Scanner registers source files dropped into the ingest directory as
// uploaded videos, so material that bypasses the HTTP surface still enters
// the pipeline.
type Scanner struct {
	catalog   port.Catalog
	ingestDir string

	// Events are debounced so a large file being copied in does not get
	// registered before the copy finishes.
	debounce time.Duration
}

func NewScanner(catalog port.Catalog, ingestDir string) *Scanner {
	return &Scanner{
		catalog:   catalog,
		ingestDir: ingestDir,
		debounce:  2 * time.Second,
	}
}

// ScanOnce walks the ingest directory and registers every video file whose
// path the catalog does not know yet. Returns the number of new videos.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	added := 0
	err := filepath.WalkDir(s.ingestDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !domain.IsVideoFile(d.Name()) {
			return nil
		}

		known, err := s.catalog.HasVideoWithSource(ctx, path)
		if err != nil {
			return err
		}
		if known {
			return nil
		}

		title := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		v := domain.NewVideo(title, path)
		if err := s.catalog.CreateVideo(ctx, v); err != nil {
			return err
		}
		logger.Info.Printf("scanner: registered %s as video %d (token=%s)",
			logger.SanitizeForLog(d.Name()), v.ID, v.Token)
		added++
		return nil
	})
	return added, err
}

// Watch rescans after filesystem activity in the ingest tree until ctx is
// done. New subdirectories are added to the watch as they appear.
func (s *Scanner) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.ingestDir); err != nil {
		return err
	}

	var timer *time.Timer
	rescan := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.debounce, func() {
			select {
			case rescan <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rescan:
			if _, err := s.ScanOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error.Printf("scanner: rescan failed: %v", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = watcher.Add(event.Name)
			}
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn.Printf("scanner: watch error: %v", err)
		}
	}
}
