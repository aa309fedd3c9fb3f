// Package workspace describes a repository to the answer model.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectType represents the type of project.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeRust    ProjectType = "rust"
	ProjectTypeJava    ProjectType = "java"
	ProjectTypeUnknown ProjectType = "unknown"
)

// manifests are checked in order; the first present file decides.
var manifests = []struct {
	file string
	kind ProjectType
}{
	{"go.mod", ProjectTypeGo},
	{"package.json", ProjectTypeNode},
	{"pyproject.toml", ProjectTypePython},
	{"requirements.txt", ProjectTypePython},
	{"Cargo.toml", ProjectTypeRust},
	{"pom.xml", ProjectTypeJava},
	{"build.gradle", ProjectTypeJava},
}

var extTypes = map[string]ProjectType{
	".go":   ProjectTypeGo,
	".ts":   ProjectTypeNode,
	".tsx":  ProjectTypeNode,
	".js":   ProjectTypeNode,
	".jsx":  ProjectTypeNode,
	".py":   ProjectTypePython,
	".rs":   ProjectTypeRust,
	".java": ProjectTypeJava,
}

// minFiles is how many root files of one kind the extension fallback needs.
const minFiles = 3

// DetectProjectType detects the project type using manifest-first detection with extension fallback.
func DetectProjectType(repoRoot string) ProjectType {
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(repoRoot, m.file)); err == nil {
			return m.kind
		}
	}

	entries, err := os.ReadDir(repoRoot)
	if err != nil {
		return ProjectTypeUnknown
	}
	counts := make(map[ProjectType]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if kind, ok := extTypes[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			counts[kind]++
		}
	}

	detected, best := ProjectTypeUnknown, minFiles-1
	for _, kind := range []ProjectType{ProjectTypeGo, ProjectTypeNode, ProjectTypePython, ProjectTypeRust, ProjectTypeJava} {
		if counts[kind] > best {
			detected, best = kind, counts[kind]
		}
	}
	return detected
}

// Describe names the repository for the answer prompt, e.g.
// "app (a go project on branch main)".
func Describe(repoRoot string, kind ProjectType, branch string) string {
	name := filepath.Base(repoRoot)
	var parts []string
	if kind != ProjectTypeUnknown && kind != "" {
		parts = append(parts, fmt.Sprintf("a %s project", kind))
	}
	if branch != "" {
		parts = append(parts, "on branch "+branch)
	}
	if len(parts) == 0 {
		return name
	}
	return name + " (" + strings.Join(parts, " ") + ")"
}
