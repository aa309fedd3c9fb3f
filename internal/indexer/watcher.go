package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher batches events before reporting.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher watches a repository and reports changed files in batches.
type FileWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	ignored  func(rel string) bool
	onChange func([]string)
	debounce time.Duration
	log      *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher creates a watcher for root. ignored filters slash
// separated relative paths; it may be nil.
func NewFileWatcher(root string, ignored func(string) bool, log *zap.SugaredLogger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if ignored == nil {
		ignored = func(string) bool { return false }
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileWatcher{
		root:     root,
		watcher:  w,
		ignored:  ignored,
		debounce: DefaultDebounce,
		log:      log,
		pending:  make(map[string]struct{}),
	}, nil
}

// OnChange sets the callback that receives changed paths, relative to the
// root and sorted. It runs on the watcher's goroutine.
func (fw *FileWatcher) OnChange(fn func([]string)) {
	fw.onChange = fn
}

// Start adds every non-ignored directory and begins processing events
// until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(fw.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, ok := fw.rel(path); ok && rel != "." && fw.ignored(rel) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.log.Warnw("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk repo: %w", err)
	}

	ctx, fw.cancel = context.WithCancel(ctx)
	fw.wg.Add(2)
	go fw.eventLoop(ctx)
	go fw.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (fw *FileWatcher) Stop() error {
	if fw.cancel != nil {
		fw.cancel()
	}
	fw.wg.Wait()
	return fw.watcher.Close()
}

func (fw *FileWatcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (fw *FileWatcher) eventLoop(ctx context.Context) {
	defer fw.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warnw("watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	rel, ok := fw.rel(event.Name)
	if !ok || fw.ignored(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.watcher.Add(event.Name); err != nil {
				fw.log.Warnw("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if DetectLanguage(rel) == "" {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.mu.Lock()
		fw.pending[rel] = struct{}{}
		fw.mu.Unlock()
	}
}

func (fw *FileWatcher) debounceLoop(ctx context.Context) {
	defer fw.wg.Done()
	ticker := time.NewTicker(fw.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fw.flush()
		}
	}
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		paths = append(paths, p)
	}
	fw.pending = make(map[string]struct{})
	fw.mu.Unlock()

	sort.Strings(paths)
	fw.log.Debugw("files changed", "count", len(paths))
	if fw.onChange != nil {
		fw.onChange(paths)
	}
}
