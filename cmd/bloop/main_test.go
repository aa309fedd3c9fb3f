package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BB-fat/bloop/internal/config"
	"github.com/BB-fat/bloop/internal/engine"
	"github.com/BB-fat/bloop/internal/project"
	"github.com/BB-fat/bloop/internal/session"
)

func TestOptionsApply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags keep config",
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Model != "gpt-4-0613" || cfg.MaxSteps != 12 || !cfg.Watch {
					t.Errorf("config changed: %+v", cfg)
				}
			},
		},
		{
			name: "model moves answer model along",
			args: []string{"-m", "gpt-4o"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Model != "gpt-4o" || cfg.AnswerModel != "gpt-4o" {
					t.Errorf("models = %s/%s", cfg.Model, cfg.AnswerModel)
				}
			},
		},
		{
			name: "explicit answer model wins",
			args: []string{"--model", "gpt-4o", "--answer-model", "gpt-4o-mini"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Model != "gpt-4o" || cfg.AnswerModel != "gpt-4o-mini" {
					t.Errorf("models = %s/%s", cfg.Model, cfg.AnswerModel)
				}
			},
		},
		{
			name: "limits and watch",
			args: []string{"--max-steps", "3", "--step-timeout", "30s", "--no-watch", "--provider", "anthropic"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.MaxSteps != 3 || cfg.StepTimeout != 30*time.Second || cfg.Watch || cfg.LLMProvider != "anthropic" {
					t.Errorf("config = %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			cfg := config.Defaults()
			cfg.AnswerModel = cfg.Model
			o.apply(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--max-steps", "-1"},
		{"stray"},
		{"--unknown"},
	} {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Errorf("parseFlags(%v) succeeded", args)
		}
	}
}

func TestAgentConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Model = "claude-sonnet"
	cfg.MaxSteps = 0
	cfg.StepTimeout = 5 * time.Second

	ac := agentConfig(&cfg, "local/tmp/repo", "thread-1")
	if ac.Model != "claude-sonnet" || ac.MaxSteps != engine.DefaultMaxSteps || ac.StepTimeout != 5*time.Second {
		t.Errorf("agentConfig() = %+v", ac)
	}
	if ac.Repo != "local/tmp/repo" || ac.ThreadID != "thread-1" {
		t.Errorf("agentConfig() ids = %s %s", ac.Repo, ac.ThreadID)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}

	e := engine.Exchange{ID: "e1", Query: engine.ParseQuery("where is auth")}
	e.SearchSteps = []engine.SearchStep{engine.PathStep{Query: "auth"}}
	p.print(e)
	e.SearchSteps = append(e.SearchSteps, engine.ProcStep{Query: "token", Paths: []string{"a.go", "b.go"}})
	p.print(e)
	e.Answer = &engine.FinalAnswer{Text: "In a.go.", Conclusion: "a.go"}
	p.print(e)
	p.print(e)

	got := buf.String()
	if n := strings.Count(got, `path "auth"`); n != 1 {
		t.Errorf("path step printed %d times:\n%s", n, got)
	}
	if !strings.Contains(got, `proc "token" over a.go, b.go`) {
		t.Errorf("proc step missing:\n%s", got)
	}
	if n := strings.Count(got, "In a.go."); n != 1 {
		t.Errorf("answer printed %d times:\n%s", n, got)
	}

	buf.Reset()
	p.print(engine.Exchange{ID: "e2", SearchSteps: []engine.SearchStep{engine.CodeStep{Query: "jwt"}}})
	if !strings.Contains(buf.String(), `code "jwt"`) {
		t.Errorf("new exchange steps not printed: %q", buf.String())
	}
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, json: true}
	p.print(engine.Exchange{ID: "e1", Answer: &engine.FinalAnswer{Text: "ok"}})
	p.print(engine.Exchange{ID: "e1", Answer: &engine.FinalAnswer{Text: "ok"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("printed %d lines, want 2", len(lines))
	}
	var got struct {
		ID     string `json:"id"`
		Answer struct {
			Text string `json:"text"`
		} `json:"answer"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "e1" || got.Answer.Text != "ok" {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestPrinterEvents(t *testing.T) {
	var buf bytes.Buffer
	(&printer{w: &buf}).event(engine.Event{Kind: "done"})
	if buf.Len() != 0 {
		t.Errorf("text printer rendered an event: %q", buf.String())
	}

	(&printer{w: &buf, json: true}).event(engine.Event{Kind: "tool_start", Data: "path"})
	if got := strings.TrimSpace(buf.String()); got != `{"event":"tool_start","data":"path"}` {
		t.Errorf("event line = %s", got)
	}
}

func TestReplExits(t *testing.T) {
	var buf bytes.Buffer
	s := &conversation{out: &printer{w: &buf}}
	repl(context.Background(), s, strings.NewReader("\n  \nquit\nnever asked\n"))
	if n := strings.Count(buf.String(), "you> "); n != 3 {
		t.Errorf("prompted %d times, want 3", n)
	}
}

func TestThreadRoundTrip(t *testing.T) {
	store := session.NewStore(t.TempDir())
	repo := t.TempDir()

	thread, history, err := openThread(store, "", repo)
	if err != nil {
		t.Fatal(err)
	}
	if thread.ID == "" || thread.RepoPath != repo || len(history) != 0 {
		t.Fatalf("new thread = %+v, %d exchanges", thread, len(history))
	}

	c := &conversation{
		threads: store,
		titler:  session.NewSummarizer(nil, ""),
		thread:  thread,
		history: []engine.Exchange{{
			ID:          "e1",
			Query:       engine.ParseQuery("where is main lang:go"),
			SearchSteps: []engine.SearchStep{engine.PathStep{Query: "main", Response: "0 main.go"}},
			Answer:      &engine.FinalAnswer{Text: "main.go"},
		}},
	}
	c.save(context.Background())

	resumed, history, err := openThread(store, thread.ID, repo)
	if err != nil {
		t.Fatalf("openThread() error = %v", err)
	}
	if resumed.Title != "where is main lang:go" {
		t.Errorf("title = %q", resumed.Title)
	}
	if len(history) != 1 || history[0].Query.Target != "where is main" || len(history[0].SearchSteps) != 1 {
		t.Errorf("history = %+v", history)
	}

	var buf bytes.Buffer
	if err := listThreads(&buf, store, repo); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), thread.ID) || !strings.Contains(buf.String(), "where is main") {
		t.Errorf("listThreads() = %q", buf.String())
	}

	if _, _, err := openThread(store, "missing", repo); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("openThread(missing) error = %v", err)
	}
}

func TestResolveRepoRoot(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveRepoRoot(dir)
	if err != nil || got != dir {
		t.Errorf("resolveRepoRoot(dir) = %q, %v", got, err)
	}

	file := filepath.Join(dir, "f.go")
	if err := os.WriteFile(file, []byte("package f\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{file, filepath.Join(dir, "missing")} {
		if _, err := resolveRepoRoot(bad); err == nil {
			t.Errorf("resolveRepoRoot(%q) succeeded", bad)
		}
	}
}

func TestPrepareRuntimeEnv(t *testing.T) {
	repo := t.TempDir()
	if err := os.WriteFile(filepath.Join(repo, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(repo, project.Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, project.Dir, project.ConfigFile), []byte("ignore:\n  - skip/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, project.Dir, project.RulesFile), []byte("Be brief."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(repo, "skip"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "skip", "main_skip.go"), []byte("package skip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Watch = false
	cfg.Analytics = filepath.Join(t.TempDir(), "events.db")
	log := zap.NewNop().Sugar()

	env, err := prepareRuntimeEnv(context.Background(), &options{repo: repo, memory: true}, &cfg, log)
	if err != nil {
		t.Fatalf("prepareRuntimeEnv() error = %v", err)
	}
	defer env.Close(log)

	if env.RepoRef != "local/"+repo {
		t.Errorf("RepoRef = %q", env.RepoRef)
	}
	paths, err := env.Index.SearchPaths(context.Background(), "main", nil, 10)
	if err != nil || len(paths) != 1 || paths[0] != "main.go" {
		t.Errorf("SearchPaths() = %v, %v", paths, err)
	}
	if env.Rules != "Be brief." {
		t.Errorf("Rules = %q", env.Rules)
	}
	if len(env.closers) != 2 {
		t.Errorf("closers = %d, want index and analytics", len(env.closers))
	}
	if _, err := os.Stat(filepath.Join(repo, project.Dir, "index.db")); !os.IsNotExist(err) {
		t.Errorf("memory index wrote to the repository: %v", err)
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		level   zapcore.Level
	}{
		{name: "cancelled", err: context.Canceled, wantMsg: "query cancelled", level: zapcore.WarnLevel},
		{name: "timeout", err: &engine.TimeoutError{Duration: time.Second}, wantMsg: "query timed out", level: zapcore.WarnLevel},
		{name: "step limit", err: engine.ErrStepLimit, wantMsg: "no answer within the step limit", level: zapcore.WarnLevel},
		{name: "step failure", err: &engine.ProcessingError{Err: errors.New("boom"), Op: "model"}, wantMsg: "query failed", level: zapcore.ErrorLevel},
		{name: "build failure", err: errors.New("failed to build agent"), wantMsg: "query could not start", level: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			reportError(zap.New(core).Sugar(), tt.err)

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("logged %d entries, want 1", len(entries))
			}
			if entries[0].Message != tt.wantMsg || entries[0].Level != tt.level {
				t.Errorf("logged %s %q, want %s %q", entries[0].Level, entries[0].Message, tt.level, tt.wantMsg)
			}
		})
	}

	core, logs := observer.New(zapcore.DebugLevel)
	reportError(zap.New(core).Sugar(), nil)
	if logs.Len() != 0 {
		t.Errorf("nil error logged %d entries", logs.Len())
	}
}
