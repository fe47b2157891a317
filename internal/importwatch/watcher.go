// Package importwatch watches an inbox directory for dropped workbooks
// and feeds them into the slip collection.
package importwatch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Importer consumes a workbook stream and reports how many records
// were appended.
type Importer interface {
	ImportWorkbook(r io.Reader) (int, error)
}

// settleDelay is how long a file must stay quiet before it is picked
// up, so half-copied workbooks are not read mid-write.
const settleDelay = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the inbox directory and imports
// every .xlsx file dropped there until ctx is cancelled. Files already
// present at startup are imported first. Processed files are renamed
// with a .done suffix, unreadable ones with .failed, so a restart never
// imports the same file twice.
func Watch(ctx context.Context, inbox string, imp Importer, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inbox); err != nil {
		return err
	}

	logger.Info("importwatch: started", slog.String("inbox", inbox))

	// Pick up anything dropped while the service was down.
	entries, err := os.ReadDir(inbox)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && isWorkbook(e.Name()) {
			process(filepath.Join(inbox, e.Name()), imp, logger)
		}
	}

	// Per-file settle timers so a workbook still being copied is not
	// read before its last write.
	timers := make(map[string]*time.Timer)
	ready := make(chan string, 16)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("importwatch: stopped")
			return nil

		case path := <-ready:
			delete(timers, path)
			process(path, imp, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isWorkbook(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := ev.Name
			if t, exists := timers[path]; exists {
				t.Reset(settleDelay)
			} else {
				timers[path] = time.AfterFunc(settleDelay, func() {
					select {
					case ready <- path:
					case <-ctx.Done():
					}
				})
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func process(path string, imp Importer, logger *slog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		// Already renamed or removed; nothing to do.
		return
	}
	n, impErr := imp.ImportWorkbook(f)
	_ = f.Close()

	if impErr != nil {
		logger.Warn("importwatch: import failed",
			slog.String("file", filepath.Base(path)),
			slog.String("error", impErr.Error()))
		markProcessed(path, ".failed", logger)
		return
	}

	logger.Info("importwatch: imported",
		slog.String("file", filepath.Base(path)),
		slog.Int("slips", n))
	markProcessed(path, ".done", logger)
}

func markProcessed(path, suffix string, logger *slog.Logger) {
	if err := os.Rename(path, path+suffix); err != nil {
		logger.Warn("importwatch: mark processed failed",
			slog.String("file", filepath.Base(path)),
			slog.String("error", err.Error()))
	}
}

func isWorkbook(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}
