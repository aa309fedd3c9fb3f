package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, env map[string]string) *Manager {
	t.Helper()
	m := NewManagerAt(t.TempDir())
	m.getenv = func(k string) string { return env[k] }
	return m
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := newTestManager(t, nil)
	if m.Exists() {
		t.Fatal("Exists() = true for empty dir")
	}

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Defaults()
	want.AnswerModel = want.Model
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)
	in := &Config{
		LLMProvider: "anthropic",
		APIKey:      "sk-ant-test",
		Model:       "claude-3-5-sonnet-20241022",
		AnswerModel: "claude-3-5-haiku-20241022",
		MaxSteps:    5,
		StepTimeout: 30 * time.Second,
		Watch:       false,
	}
	if err := m.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(m.GetConfigPath())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *in {
		t.Errorf("Load() = %+v, want %+v", *got, *in)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "env beats file",
			file: "model: gpt-4\nmax_steps: 4\n",
			env:  map[string]string{"BLOOP_MODEL": "gpt-4o", "BLOOP_STEP_TIMEOUT": "45s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Model != "gpt-4o" || cfg.AnswerModel != "gpt-4o" {
					t.Errorf("models = %q/%q, want gpt-4o", cfg.Model, cfg.AnswerModel)
				}
				if cfg.MaxSteps != 4 {
					t.Errorf("MaxSteps = %d, want 4", cfg.MaxSteps)
				}
				if cfg.StepTimeout != 45*time.Second {
					t.Errorf("StepTimeout = %s, want 45s", cfg.StepTimeout)
				}
			},
		},
		{
			name: "provider key fallback",
			file: "llm_provider: anthropic\n",
			env:  map[string]string{"ANTHROPIC_API_KEY": "ak", "OPENAI_API_KEY": "ok"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.APIKey != "ak" {
					t.Errorf("APIKey = %q, want ak", cfg.APIKey)
				}
			},
		},
		{
			name: "file key wins over env",
			file: "api_key: from-file\n",
			env:  map[string]string{"OPENAI_API_KEY": "from-env"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.APIKey != "from-file" {
					t.Errorf("APIKey = %q, want from-file", cfg.APIKey)
				}
			},
		},
		{
			name:    "bad step limit",
			env:     map[string]string{"BLOOP_MAX_STEPS": "many"},
			wantErr: true,
		},
		{
			name:    "bad yaml",
			file:    "model: [unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, tt.env)
			if tt.file != "" {
				if err := os.WriteFile(filepath.Join(m.configDir, "config.yaml"), []byte(tt.file), 0600); err != nil {
					t.Fatal(err)
				}
			}

			cfg, err := m.Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
