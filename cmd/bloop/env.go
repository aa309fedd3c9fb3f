package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/BB-fat/bloop/internal/analytics"
	"github.com/BB-fat/bloop/internal/config"
	"github.com/BB-fat/bloop/internal/indexer"
	"github.com/BB-fat/bloop/internal/project"
	"github.com/BB-fat/bloop/internal/workspace"
)

type runtimeEnv struct {
	RepoRoot string
	RepoRef  string
	Summary  string // describes the repository to the answer model
	Rules    string // the repository's notes for the answer prompt
	Git      indexer.GitInfo
	Index    *indexer.Indexer
	Tracker  analytics.Tracker

	closers []func() error
}

func (r *runtimeEnv) Close(log *zap.SugaredLogger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Warnw("shutdown", "error", err)
		}
	}
}

func prepareRuntimeEnv(ctx context.Context, o *options, cfg *config.Config, log *zap.SugaredLogger) (*runtimeEnv, error) {
	absRepoRoot, err := resolveRepoRoot(o.repo)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{
		RepoRoot: absRepoRoot,
		RepoRef:  indexer.RepoRef(absRepoRoot),
		Git:      indexer.DetectGit(ctx, absRepoRoot),
	}
	kind := workspace.DetectProjectType(absRepoRoot)
	env.Summary = workspace.Describe(absRepoRoot, kind, env.Git.Branch)
	log.Infow("repository", "root", absRepoRoot, "type", kind, "git", env.Git.IsGit, "branch", env.Git.Branch)

	proj, err := project.LoadConfig(absRepoRoot)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		proj = &project.ProjectConfig{}
	}
	watch := cfg.Watch
	if proj.Watch != nil && !o.noWatch {
		watch = *proj.Watch
	}
	if env.Rules, err = project.LoadRules(absRepoRoot); err != nil {
		return nil, err
	}

	dataDir := o.dataDir
	if dataDir == "" && !o.memory {
		dataDir = filepath.Join(absRepoRoot, project.Dir)
	}
	idx, err := indexer.Open(ctx, indexer.Config{
		Root:    absRepoRoot,
		DataDir: dataDir,
		Ignore:  proj.Ignore,
		Log:     log.Named("indexer"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	env.Index = idx
	env.closers = append(env.closers, idx.Close)

	res, err := idx.Scan(ctx)
	if err != nil {
		env.Close(log)
		return nil, fmt.Errorf("failed to scan repository: %w", err)
	}
	log.Infow("index ready", "files", res.Discovered, "indexed", res.Indexed, "deleted", res.Deleted, "errors", len(res.Errors))
	for _, we := range res.Errors {
		log.Debugw("skipped file", "path", we.Path, "error", we.Err)
	}

	if watch {
		if err := idx.Watch(ctx); err != nil {
			log.Warnw("file watcher disabled", "error", err)
		}
	}

	trackers := analytics.Multi{analytics.LogTracker{L: log.Named("analytics")}}
	if cfg.Analytics != "" {
		st, err := analytics.NewSQLiteTracker(ctx, cfg.Analytics, log.Named("analytics"))
		if err != nil {
			env.Close(log)
			return nil, fmt.Errorf("failed to open analytics db: %w", err)
		}
		trackers = append(trackers, st)
		env.closers = append(env.closers, st.Close)
	}
	env.Tracker = trackers
	return env, nil
}

// resolveRepoRoot returns the absolute repository directory, defaulting to
// the working directory.
func resolveRepoRoot(repo string) (string, error) {
	if repo == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		repo = wd
	}
	abs, err := filepath.Abs(repo)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository path: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("repository path is not a valid directory: %s", abs)
	}
	return abs, nil
}
