// bloop answers questions about a local repository. It indexes the
// repository, then lets a model search paths and code until it can answer.
//
//	bloop --repo ~/src/project
//	bloop -q "where are tokens verified lang:go"
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/BB-fat/bloop/internal/config"
	"github.com/BB-fat/bloop/internal/engine"
	"github.com/BB-fat/bloop/internal/logger"
	"github.com/BB-fat/bloop/internal/providers"
	"github.com/BB-fat/bloop/internal/session"
	"github.com/BB-fat/bloop/internal/tools"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.help {
		fmt.Fprintln(os.Stderr, "usage: bloop [flags]")
		o.flags.PrintDefaults()
		return nil
	}

	mode, level := o.logMode, o.logLevel
	if mode == "" {
		mode = os.Getenv("BLOOP_LOG_MODE")
	}
	if level == "" {
		level = os.Getenv("BLOOP_LOG_LEVEL")
	}
	if level == "" && o.json {
		level = "warn"
	}
	log, err := logger.New(mode, level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, cfgDir, err := loadConfig(o, log)
	if err != nil {
		return err
	}
	threads := session.NewStore(cfgDir)
	if o.threads {
		root, err := resolveRepoRoot(o.repo)
		if err != nil {
			return err
		}
		return listThreads(os.Stdout, threads, root)
	}

	client, err := providers.NewClient(cfg)
	if err != nil {
		return err
	}
	log.Infow("model", "provider", cfg.LLMProvider, "model", cfg.Model, "answer_model", cfg.AnswerModel, "api_key", logger.Redact(cfg.APIKey))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	env, err := prepareRuntimeEnv(ctx, o, cfg, log)
	if err != nil {
		return err
	}
	defer env.Close(log)

	thread, history, err := openThread(threads, o.thread, env.RepoRoot)
	if err != nil {
		return err
	}

	ac := agentConfig(cfg, env.RepoRef, thread.ID)
	ac.User = os.Getenv("USER")
	c := &conversation{
		cfg:     ac,
		llm:     client,
		tools:   tools.New(env.Index, client, tools.Options{Model: cfg.AnswerModel, Repo: env.Summary, Rules: env.Rules, Log: log.Named("tools")}),
		tracker: env.Tracker,
		hooks:   engine.DefaultHooks(log.Named("engine")),
		log:     log,
		out:     &printer{w: os.Stdout, json: o.json},
		threads: threads,
		titler:  session.NewSummarizer(client, cfg.AnswerModel),
		thread:  thread,
		history: history,
	}

	if o.query != "" {
		qctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		return c.ask(qctx, o.query)
	}

	log.Infow("ready", "thread", thread.ID, "exchanges", len(history))
	repl(ctx, c, os.Stdin)
	return nil
}

// openThread resumes thread id, or starts a new one when id is empty.
func openThread(store *session.Store, id, repoRoot string) (*session.Thread, []engine.Exchange, error) {
	if id == "" {
		return &session.Thread{ID: uuid.NewString(), RepoPath: repoRoot}, nil, nil
	}
	t, err := store.Load(id, repoRoot)
	if err != nil {
		return nil, nil, err
	}
	history, err := session.ToEngine(t.Exchanges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore thread %s: %w", id, err)
	}
	return t, history, nil
}

func listThreads(w io.Writer, store *session.Store, repoRoot string) error {
	threads, err := store.List(repoRoot)
	if err != nil {
		return err
	}
	for _, t := range threads {
		fmt.Fprintf(w, "%s  %s  %2d  %s\n", t.ID, t.UpdatedAt.Local().Format(time.DateTime), t.Exchanges, t.Title)
	}
	return nil
}

func loadConfig(o *options, log *zap.SugaredLogger) (*config.Config, string, error) {
	var m *config.Manager
	if o.configDir != "" {
		m = config.NewManagerAt(o.configDir)
	} else {
		var err error
		if m, err = config.NewManager(); err != nil {
			return nil, "", err
		}
	}

	cfg, err := m.Load()
	if err != nil {
		return nil, "", err
	}
	if m.Exists() {
		log.Debugw("config loaded", "path", m.GetConfigPath())
	}
	o.apply(cfg)
	return cfg, m.Dir(), nil
}
