package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrOutsideRoot is returned for paths that escape the repository root.
var ErrOutsideRoot = errors.New("path is outside the repository")

// Config configures an Indexer.
type Config struct {
	Root string
	// DataDir holds index.db and index.bleve. Empty keeps both in memory.
	DataDir string
	// Ignore holds extra gitignore-style patterns.
	Ignore []string
	Log    *zap.SugaredLogger
}

// Indexer keeps a searchable index of a repository's files.
type Indexer struct {
	root   string
	db     *DB
	search *SearchIndex
	log    *zap.SugaredLogger
	ignore []string

	// mu serializes writers (Scan and Reindex).
	mu      sync.Mutex
	walker  *Walker
	watcher *FileWatcher
}

// ScanResult summarizes one scan of the repository.
type ScanResult struct {
	Discovered int
	Indexed    int
	Deleted    int
	Errors     []WalkError
}

// Open opens (or creates) the index for cfg.Root. Call Scan to bring it up
// to date.
func Open(ctx context.Context, cfg Config) (*Indexer, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to open repo: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("repo root %s is not a directory", root)
	}

	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	dbPath := ":memory:"
	var search *SearchIndex
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		dbPath = filepath.Join(cfg.DataDir, "index.db")
		search, err = OpenSearchIndex(filepath.Join(cfg.DataDir, "index.bleve"), log)
	} else {
		search, err = NewMemSearchIndex()
	}
	if err != nil {
		return nil, err
	}

	db, err := NewDB(ctx, dbPath)
	if err != nil {
		search.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return &Indexer{root: root, db: db, search: search, log: log, ignore: cfg.Ignore}, nil
}

// Root returns the absolute repository root.
func (i *Indexer) Root() string { return i.root }

// Scan walks the repository, indexes new or changed files and drops files
// that disappeared.
func (i *Indexer) Scan(ctx context.Context) (*ScanResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	known, err := i.db.Files(ctx)
	if err != nil {
		return nil, err
	}
	walkKnown := known
	// An empty search index with a populated database means the index was
	// rebuilt; everything has to be re-chunked.
	if n, err := i.search.Count(); err == nil && n == 0 && len(known) > 0 {
		i.log.Infow("search index empty, reindexing all files", "files", len(known))
		if err := i.forgetHashes(ctx, known); err != nil {
			return nil, err
		}
		walkKnown = nil
	}

	i.walker = NewWalker(i.root, walkKnown, i.ignore...)
	walk, err := i.walker.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", i.root, err)
	}

	res := &ScanResult{Discovered: len(walk.Files), Errors: walk.Errors}
	seen := make(map[string]bool, len(walk.Files))
	for _, f := range walk.Files {
		seen[f.Path] = true
		changed, err := i.indexFile(ctx, f)
		if err != nil {
			res.Errors = append(res.Errors, WalkError{Path: f.Path, Err: err})
			continue
		}
		if changed {
			res.Indexed++
		}
	}
	for path := range known {
		if seen[path] {
			continue
		}
		if err := i.deleteFile(ctx, path); err != nil {
			res.Errors = append(res.Errors, WalkError{Path: path, Err: err})
			continue
		}
		res.Deleted++
	}

	i.log.Infow("scan complete",
		"root", i.root,
		"discovered", res.Discovered,
		"indexed", res.Indexed,
		"deleted", res.Deleted,
		"errors", len(res.Errors),
	)
	return res, nil
}

func (i *Indexer) forgetHashes(ctx context.Context, known map[string]FileRecord) error {
	for _, rec := range known {
		f := FileInfo{Path: rec.Path, Lang: Language(rec.Lang), SizeBytes: rec.SizeBytes, MtimeUnix: rec.MtimeUnix}
		if _, err := i.db.UpsertFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Reindex refreshes the given relative paths. Paths that no longer exist
// or are no longer indexable are removed.
func (i *Indexer) Reindex(ctx context.Context, paths []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.walker == nil {
		i.walker = NewWalker(i.root, nil, i.ignore...)
	}
	// Changed files are always rehashed.
	w := *i.walker
	w.known = nil

	var errs []error
	for _, rel := range paths {
		info, err := w.Stat(rel)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		if info != nil && (info.Lang == "" || w.Ignored(rel)) {
			info = nil
		}
		if info == nil {
			if err := i.deleteFile(ctx, rel); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if _, err := i.indexFile(ctx, *info); err != nil {
			errs = append(errs, err)
		}
	}
	i.log.Debugw("reindexed files", "count", len(paths), "errors", len(errs))
	return errors.Join(errs...)
}

func (i *Indexer) indexFile(ctx context.Context, f FileInfo) (bool, error) {
	changed, err := i.db.UpsertFile(ctx, f)
	if err != nil || !changed {
		return false, err
	}

	content, err := os.ReadFile(filepath.Join(i.root, filepath.FromSlash(f.Path)))
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	chunks := ChunkFile(f, content)
	stale, err := i.db.ReplaceChunks(ctx, f.Path, chunks)
	if err != nil {
		return false, err
	}
	if err := i.search.IndexFile(f, chunks, stale); err != nil {
		return false, fmt.Errorf("failed to index %s: %w", f.Path, err)
	}
	return true, nil
}

func (i *Indexer) deleteFile(ctx context.Context, path string) error {
	ids, err := i.db.ChunkIDs(ctx, path)
	if err != nil {
		return err
	}
	if err := i.search.DeleteFile(path, ids); err != nil {
		return fmt.Errorf("failed to unindex %s: %w", path, err)
	}
	return i.db.DeleteFile(ctx, path)
}

// Watch starts a file watcher that reindexes changed files until ctx is
// done or Close is called.
func (i *Indexer) Watch(ctx context.Context) error {
	walker := NewWalker(i.root, nil, i.ignore...)
	fw, err := NewFileWatcher(i.root, walker.Ignored, i.log)
	if err != nil {
		return err
	}
	fw.OnChange(func(paths []string) {
		if err := i.Reindex(ctx, paths); err != nil {
			i.log.Warnw("reindex failed", "error", err)
		}
	})
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}

	i.mu.Lock()
	i.watcher = fw
	i.mu.Unlock()
	return nil
}

// SearchPaths returns repository paths matching text, restricted to langs
// when given.
func (i *Indexer) SearchPaths(_ context.Context, text string, langs []string, limit int) ([]string, error) {
	return i.search.SearchPaths(text, langs, limit)
}

// SearchCode returns chunks matching text, restricted to langs when given.
func (i *Indexer) SearchCode(ctx context.Context, text string, langs []string, limit int) ([]Chunk, error) {
	ids, err := i.search.SearchChunks(text, langs, limit)
	if err != nil {
		return nil, err
	}
	return i.db.ChunksByID(ctx, ids)
}

// ReadFile reads a file by its path relative to the root.
func (i *Indexer) ReadFile(rel string) ([]byte, error) {
	full, err := i.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (i *Indexer) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	full := filepath.Join(i.root, filepath.FromSlash(rel))
	back, err := filepath.Rel(i.root, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	return full, nil
}

// Close stops the watcher and closes the index.
func (i *Indexer) Close() error {
	i.mu.Lock()
	fw := i.watcher
	i.watcher = nil
	i.mu.Unlock()

	var errs []error
	if fw != nil {
		errs = append(errs, fw.Stop())
	}
	errs = append(errs, i.search.Close(), i.db.Close())
	return errors.Join(errs...)
}
