// Package watcher re-indexes the document directory when files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/biz"
)

// Indexer is the part of the pipeline the watcher drives.
type Indexer interface {
	IndexDirectory(ctx context.Context, dir string) (*biz.IndexReport, error)
}

// Submitter runs tasks off the event loop. *pool.Pool satisfies it.
type Submitter interface {
	Submit(task func()) error
}

// Config holds watcher settings.
type Config struct {
	Dir        string
	Extensions []string
	Debounce   time.Duration
	// Timeout bounds a single re-index run.
	Timeout time.Duration
}

// Watcher debounces file events under Dir and triggers a full re-index.
// Content-hash IDs make the re-index idempotent for unchanged files.
type Watcher struct {
	cfg     Config
	indexer Indexer
	submit  Submitter

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	dirty   bool
	stopped bool
	runs    int
}

// New creates a Watcher. submit may be nil, in which case runs happen on
// their own goroutine.
func New(cfg Config, indexer Indexer, submit Submitter) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".pdf", ".txt", ".md"}
	}
	return &Watcher{cfg: cfg, indexer: indexer, submit: submit}
}

// Name implements server.Runnable.
func (w *Watcher) Name() string {
	return "watcher[" + w.cfg.Dir + "]"
}

// Start registers Dir and its subdirectories and begins the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.addTree(fsw, w.cfg.Dir); err != nil {
		_ = fsw.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(loopCtx)
	logger.Infow("directory watcher started", "dir", w.cfg.Dir, "debounce", w.cfg.Debounce.String())
	return nil
}

// Stop ends the event loop and drops any pending run.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.fsw == nil {
		return nil
	}
	w.cancel()
	err := w.fsw.Close()

	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Runs returns how many re-index runs have started.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("directory watcher error", "dir", w.cfg.Dir, "error", err.Error())
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	// 新建的子目录也需要监听
	if event.Has(fsnotify.Create) {
		if isDir, err := statDir(event.Name); err == nil && isDir {
			if err := w.addTree(w.fsw, event.Name); err != nil {
				logger.Warnw("failed to watch new directory", "path", event.Name, "error", err.Error())
			}
			w.schedule()
			return
		}
	}

	if !w.watched(event.Name) {
		return
	}
	logger.Debugw("document changed", "path", event.Name, "op", event.Op.String())
	w.schedule()
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.trigger)
}

// trigger starts a run, or marks the tree dirty if one is in flight.
func (w *Watcher) trigger() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	if w.running {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.runs++
	w.mu.Unlock()

	task := w.run
	if w.submit == nil {
		go task()
		return
	}
	if err := w.submit.Submit(task); err != nil {
		logger.Warnw("re-index rejected by pool, retrying after debounce", "dir", w.cfg.Dir, "error", err.Error())
		w.mu.Lock()
		w.running = false
		w.runs--
		w.mu.Unlock()
		w.schedule()
	}
}

func (w *Watcher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	report, err := w.indexer.IndexDirectory(ctx, w.cfg.Dir)
	cancel()
	if err != nil {
		logger.Errorw("re-index after change failed", "dir", w.cfg.Dir, "error", err.Error())
	} else {
		logger.Infow("re-indexed after change",
			"dir", w.cfg.Dir, "files", report.Files, "chunks", report.Chunks, "failed", len(report.Failures))
	}

	w.mu.Lock()
	w.running = false
	again := w.dirty
	w.dirty = false
	w.mu.Unlock()

	if again {
		w.schedule()
	}
}

func (w *Watcher) watched(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.cfg.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
