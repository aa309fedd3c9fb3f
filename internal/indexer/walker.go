package indexer

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/zeebo/blake3"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "ts"
	LangJavaScript Language = "js"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangMarkdown   Language = "markdown"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangShell      Language = "shell"
	LangTOML       Language = "toml"
)

// MaxFileSize is the largest file the walker will hash and index.
const MaxFileSize = 1 << 20

var extLanguages = map[string]Language{
	".go":   LangGo,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".py":   LangPython,
	".rs":   LangRust,
	".java": LangJava,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".cc":   LangCPP,
	".cxx":  LangCPP,
	".hpp":  LangCPP,
	".md":   LangMarkdown,
	".json": LangJSON,
	".yaml": LangYAML,
	".yml":  LangYAML,
	".toml": LangTOML,
	".html": LangHTML,
	".htm":  LangHTML,
	".css":  LangCSS,
	".sh":   LangShell,
}

// DetectLanguage returns the language of path from its extension, or ""
// when the file is not indexed.
func DetectLanguage(path string) Language {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// NormalizeLanguage maps a user supplied filter such as "golang" or
// "typescript" onto the Language the index stores.
func NormalizeLanguage(filter string) Language {
	filter = strings.ToLower(strings.TrimSpace(filter))
	switch filter {
	case "golang":
		return LangGo
	case "typescript", "tsx":
		return LangTypeScript
	case "javascript", "jsx":
		return LangJavaScript
	case "py":
		return LangPython
	case "rs":
		return LangRust
	case "c++":
		return LangCPP
	case "md":
		return LangMarkdown
	case "yml":
		return LangYAML
	case "sh", "bash":
		return LangShell
	}
	return Language(filter)
}

// MatchesLanguage reports whether lang satisfies filter.
func MatchesLanguage(lang Language, filter string) bool {
	return lang == NormalizeLanguage(filter)
}

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path      string // slash separated, relative to the repo root
	Lang      Language
	Hash      string // blake3 of the content
	SizeBytes int64
	MtimeUnix int64
}

// WalkError represents an error that occurred during file walking.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// WalkResult contains the results of a repository walk.
type WalkResult struct {
	Files  []FileInfo
	Errors []WalkError
}

// DefaultIgnorePatterns are common directories and files to skip.
var DefaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"dist",
	"build",
	"vendor",
	"__pycache__",
	"coverage",
	".next",
	".cache",
	"target",
	"bin",
	"obj",
	".idea",
	".vscode",
	".DS_Store",
	".bloop",
}

// Walker walks a repository and discovers indexable source files.
type Walker struct {
	root        string
	ignore      *gitignore.GitIgnore
	concurrency int
	// known lets unchanged files (same size and mtime) skip hashing.
	known map[string]FileRecord
}

// NewWalker creates a walker for root honouring every .gitignore below it
// and the extra patterns.
func NewWalker(root string, known map[string]FileRecord, extra ...string) *Walker {
	patterns := append([]string(nil), DefaultIgnorePatterns...)
	patterns = append(patterns, loadGitignorePatterns(root)...)
	patterns = append(patterns, extra...)
	return &Walker{
		root:        root,
		ignore:      gitignore.CompileIgnoreLines(patterns...),
		concurrency: 4,
		known:       known,
	}
}

// Ignored reports whether the slash separated relative path is excluded.
func (w *Walker) Ignored(rel string) bool {
	return w.ignore.MatchesPath(rel)
}

// loadGitignorePatterns reads every .gitignore in the tree. Nested files
// are rebased onto their directory so their patterns keep their scope.
func loadGitignorePatterns(root string) []string {
	var patterns []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		lines, err := readGitignoreLines(path)
		if err != nil {
			return nil
		}
		dir, _ := filepath.Rel(root, filepath.Dir(path))
		dir = filepath.ToSlash(dir)
		for _, line := range lines {
			if dir == "." {
				patterns = append(patterns, line)
				continue
			}
			negate := strings.HasPrefix(line, "!")
			line = strings.TrimPrefix(line, "!")
			rebased := dir + "/" + strings.TrimPrefix(line, "/")
			if !strings.Contains(strings.TrimSuffix(line, "/"), "/") && !strings.HasPrefix(line, "/") {
				rebased = dir + "/**/" + line
			}
			if negate {
				rebased = "!" + rebased
			}
			patterns = append(patterns, rebased)
		}
		return nil
	})
	return patterns
}

func readGitignoreLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Walk discovers all indexable files. Per-file failures are collected in
// the result; only cancellation aborts the walk.
func (w *Walker) Walk(ctx context.Context) (WalkResult, error) {
	paths := make(chan string, 100)
	var (
		mu     sync.Mutex
		result WalkResult
		wg     sync.WaitGroup
	)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range paths {
				info, err := w.Stat(rel)
				mu.Lock()
				if err != nil {
					result.Errors = append(result.Errors, WalkError{Path: rel, Err: err})
				} else if info != nil {
					result.Files = append(result.Files, *info)
				}
				mu.Unlock()
			}
		}()
	}

	walkErr := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, WalkError{Path: path, Err: err})
			mu.Unlock()
			return nil
		}
		if path == w.root {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if w.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 || DetectLanguage(rel) == "" {
			return nil
		}

		select {
		case paths <- rel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(paths)
	wg.Wait()

	if walkErr != nil {
		return result, walkErr
	}
	return result, nil
}

// Stat describes one relative path. It returns nil, nil for files that
// should not be indexed (too large or not text).
func (w *Walker) Stat(rel string) (*FileInfo, error) {
	full := filepath.Join(w.root, filepath.FromSlash(rel))
	stat, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() || stat.Size() > MaxFileSize {
		return nil, nil
	}

	info := &FileInfo{
		Path:      rel,
		Lang:      DetectLanguage(rel),
		SizeBytes: stat.Size(),
		MtimeUnix: stat.ModTime().Unix(),
	}
	if known, ok := w.known[rel]; ok && known.SizeBytes == info.SizeBytes && known.MtimeUnix == info.MtimeUnix {
		info.Hash = known.Hash
		return info, nil
	}

	hash, err := hashFile(full)
	if err != nil {
		if errors.Is(err, errBinary) {
			return nil, nil
		}
		return nil, err
	}
	info.Hash = hash
	return info, nil
}

var errBinary = errors.New("binary file")

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	for _, b := range head[:n] {
		if b == 0 {
			return "", errBinary
		}
	}

	hasher := blake3.New()
	hasher.Write(head[:n])
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
