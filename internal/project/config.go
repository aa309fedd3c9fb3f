// Package project reads the settings a repository keeps for bloop in its
// own .bloop directory.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the directory name for per-project configuration. The index
	// is stored next to it by default.
	Dir = ".bloop"
	// ConfigFile is the name of the project configuration file
	ConfigFile = "project.yaml"
	// RulesFile holds notes added to the answer prompt.
	RulesFile = "rules.md"
)

// ProjectConfig holds per-project configuration settings.
type ProjectConfig struct {
	// Ignore lists gitignore-style patterns excluded from the index on top
	// of .gitignore.
	Ignore []string `yaml:"ignore,omitempty"`
	// Watch overrides the user's watch setting when set.
	Watch *bool `yaml:"watch,omitempty"`
}

func configPath(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, ConfigFile)
}

func rulesPath(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, RulesFile)
}

// ConfigExists checks if a project configuration file exists.
func ConfigExists(repoRoot string) bool {
	_, err := os.Stat(configPath(repoRoot))
	return !os.IsNotExist(err)
}

// LoadConfig reads the project configuration from disk.
// Returns nil and no error if the config file does not exist.
func LoadConfig(repoRoot string) (*ProjectConfig, error) {
	data, err := os.ReadFile(configPath(repoRoot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	return &cfg, nil
}

// LoadRules reads the answer notes from .bloop/rules.md.
// Returns empty string and no error if the file does not exist.
func LoadRules(repoRoot string) (string, error) {
	data, err := os.ReadFile(rulesPath(repoRoot))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return string(data), nil
}
