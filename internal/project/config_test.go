package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigExists(t *testing.T) {
	tempDir := t.TempDir()

	if ConfigExists(tempDir) {
		t.Error("ConfigExists should return false when config doesn't exist")
	}

	dir := filepath.Join(tempDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s dir: %v", Dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("ignore: [gen/]\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if !ConfigExists(tempDir) {
		t.Error("ConfigExists should return true when config exists")
	}
}

func TestLoadConfig_NotExists(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Errorf("LoadConfig should not error when file doesn't exist: %v", err)
	}
	if cfg != nil {
		t.Error("LoadConfig should return nil when file doesn't exist")
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantErr   bool
		wantIgn   int
		wantWatch *bool
	}{
		{name: "ignore only", file: "ignore:\n  - gen/\n  - '*.pb.go'\n", wantIgn: 2},
		{name: "watch off", file: "watch: false\n", wantWatch: new(bool)},
		{name: "empty", file: ""},
		{name: "invalid", file: "ignore: [unclosed\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			dir := filepath.Join(tempDir, Dir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.file), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadConfig(tempDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(cfg.Ignore) != tt.wantIgn {
				t.Errorf("Ignore = %v, want %d patterns", cfg.Ignore, tt.wantIgn)
			}
			if (cfg.Watch == nil) != (tt.wantWatch == nil) || (cfg.Watch != nil && *cfg.Watch != *tt.wantWatch) {
				t.Errorf("Watch = %v, want %v", cfg.Watch, tt.wantWatch)
			}
		})
	}
}

func TestLoadRules_NotExists(t *testing.T) {
	rules, err := LoadRules(t.TempDir())
	if err != nil {
		t.Errorf("LoadRules should not error when file doesn't exist: %v", err)
	}
	if rules != "" {
		t.Errorf("LoadRules should return empty string when file doesn't exist, got: %s", rules)
	}
}

func TestLoadRules(t *testing.T) {
	tempDir := t.TempDir()

	dir := filepath.Join(tempDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s dir: %v", Dir, err)
	}

	expectedRules := "Call the payment service \"ledger\".\nLink to docs/ when relevant."
	if err := os.WriteFile(filepath.Join(dir, RulesFile), []byte(expectedRules), 0644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}

	rules, err := LoadRules(tempDir)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if rules != expectedRules {
		t.Errorf("Expected rules:\n%s\nGot:\n%s", expectedRules, rules)
	}
}
