package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	LLMProvider string        `yaml:"llm_provider,omitempty"` // openai, anthropic, kimi, deepseek
	APIKey      string        `yaml:"api_key,omitempty"`      // key for the selected provider
	Model       string        `yaml:"model,omitempty"`        // model that picks actions
	AnswerModel string        `yaml:"answer_model,omitempty"` // model that renders answers; defaults to Model
	BaseURL     string        `yaml:"base_url,omitempty"`     // optional override for API base URL
	MaxSteps    int           `yaml:"max_steps,omitempty"`
	StepTimeout time.Duration `yaml:"step_timeout,omitempty"`
	Analytics   string        `yaml:"analytics,omitempty"` // sqlite database path; empty disables it
	Watch       bool          `yaml:"watch"`               // re-index files as they change
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		LLMProvider: "openai",
		Model:       "gpt-4-0613",
		MaxSteps:    12,
		StepTimeout: 2 * time.Minute,
		Watch:       true,
	}
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
	getenv    func(string) string
}

// NewManager creates a manager rooted at the user config dir.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, "bloop")), nil
}

// NewManagerAt creates a manager reading config.yaml from dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir, getenv: os.Getenv}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string { return m.configDir }

// GetConfigPath returns the absolute path to the config.yaml file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.yaml")
}

// Load reads the configuration from disk on top of Defaults and applies
// environment overrides. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(m.GetConfigPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	if err := m.applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.AnswerModel == "" {
		cfg.AnswerModel = cfg.Model
	}
	return &cfg, nil
}

// applyEnv lets the environment override the file. API keys fall back to
// the provider's conventional variable.
func (m *Manager) applyEnv(cfg *Config) error {
	if v := m.getenv("LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := m.getenv("BLOOP_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := m.getenv("BLOOP_ANSWER_MODEL"); v != "" {
		cfg.AnswerModel = v
	}
	if v := m.getenv("LLM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := m.getenv("BLOOP_ANALYTICS_DB"); v != "" {
		cfg.Analytics = v
	}
	if v := m.getenv("BLOOP_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BLOOP_MAX_STEPS %q: %w", v, err)
		}
		cfg.MaxSteps = n
	}
	if v := m.getenv("BLOOP_STEP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BLOOP_STEP_TIMEOUT %q: %w", v, err)
		}
		cfg.StepTimeout = d
	}

	if cfg.APIKey == "" {
		switch cfg.LLMProvider {
		case "anthropic":
			cfg.APIKey = m.getenv("ANTHROPIC_API_KEY")
		case "kimi":
			cfg.APIKey = m.getenv("KIMI_API_KEY")
		case "deepseek":
			cfg.APIKey = m.getenv("DEEPSEEK_API_KEY")
		default:
			cfg.APIKey = m.getenv("OPENAI_API_KEY")
		}
	}
	return nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
