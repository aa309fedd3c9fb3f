package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/BB-fat/bloop/internal/config"
	"github.com/BB-fat/bloop/internal/engine"
)

type options struct {
	repo        string
	dataDir     string
	configDir   string
	provider    string
	model       string
	answerModel string
	analytics   string
	maxSteps    int
	stepTimeout time.Duration
	noWatch     bool
	memory      bool
	json        bool
	query       string
	thread      string
	threads     bool
	logMode     string
	logLevel    string
	help        bool

	flags *pflag.FlagSet
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := pflag.NewFlagSet("bloop", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.repo, "repo", "r", "", "path to repository root (default: current directory)")
	fs.StringVar(&o.dataDir, "data-dir", "", "where the index is kept (default: <repo>/.bloop)")
	fs.StringVar(&o.configDir, "config-dir", "", "directory holding config.yaml (default: user config dir)")
	fs.StringVar(&o.provider, "provider", "", "LLM provider, overrides config and LLM_PROVIDER")
	fs.StringVarP(&o.model, "model", "m", "", "model that picks actions")
	fs.StringVar(&o.answerModel, "answer-model", "", "model that renders answers (default: --model)")
	fs.StringVar(&o.analytics, "analytics", "", "sqlite file recording query events")
	fs.IntVar(&o.maxSteps, "max-steps", 0, "actions allowed per query")
	fs.DurationVar(&o.stepTimeout, "step-timeout", 0, "deadline for a single step")
	fs.BoolVar(&o.noWatch, "no-watch", false, "do not re-index files while running")
	fs.BoolVar(&o.memory, "memory", false, "keep the index in memory only")
	fs.BoolVar(&o.json, "json", false, "print exchange snapshots as JSON lines")
	fs.StringVarP(&o.query, "query", "q", "", "answer one query and exit")
	fs.StringVarP(&o.thread, "thread", "t", "", "continue a saved thread")
	fs.BoolVar(&o.threads, "threads", false, "list saved threads for the repository and exit")
	fs.StringVar(&o.logMode, "log-mode", "", "dev or prod (default: BLOOP_LOG_MODE or dev)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (default: BLOOP_LOG_LEVEL)")
	fs.BoolVarP(&o.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.maxSteps < 0 {
		return nil, fmt.Errorf("--max-steps must not be negative")
	}
	o.flags = fs
	return &o, nil
}

// apply lets explicitly set flags override the loaded configuration.
func (o *options) apply(cfg *config.Config) {
	changed := func(name string) bool { return o.flags != nil && o.flags.Changed(name) }

	if changed("provider") {
		cfg.LLMProvider = o.provider
	}
	if changed("model") {
		// The answer model follows unless it was set separately.
		if cfg.AnswerModel == cfg.Model {
			cfg.AnswerModel = o.model
		}
		cfg.Model = o.model
	}
	if changed("answer-model") {
		cfg.AnswerModel = o.answerModel
	}
	if changed("analytics") {
		cfg.Analytics = o.analytics
	}
	if changed("max-steps") {
		cfg.MaxSteps = o.maxSteps
	}
	if changed("step-timeout") {
		cfg.StepTimeout = o.stepTimeout
	}
	if o.noWatch {
		cfg.Watch = false
	}
}

func agentConfig(cfg *config.Config, repoRef, threadID string) engine.AgentConfig {
	ac := engine.DefaultAgentConfig()
	if cfg.Model != "" {
		ac.Model = cfg.Model
	}
	if cfg.MaxSteps > 0 {
		ac.MaxSteps = cfg.MaxSteps
	}
	if cfg.StepTimeout > 0 {
		ac.StepTimeout = cfg.StepTimeout
	}
	ac.Repo = repoRef
	ac.ThreadID = threadID
	return ac
}
