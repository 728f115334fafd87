// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "sayit"

// defaultModels names the recognizer model directory for each built-in
// language.
var defaultModels = map[string]string{
	"en": "vosk-model-small-en-us-0.15",
	"hi": "vosk-model-small-hi-0.22",
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDatasetDir returns the default directory for prompt datasets.
func DefaultDatasetDir() string {
	return filepath.Join(XDGDataHome(), appName, "datasets")
}

// DefaultModelsDir returns the directory recognizer models are unpacked into.
func DefaultModelsDir() string {
	return filepath.Join(XDGDataHome(), appName, "models")
}

// DefaultModelPaths returns the model directory for every built-in language.
func DefaultModelPaths() map[string]string {
	paths := make(map[string]string, len(defaultModels))
	for lang, name := range defaultModels {
		paths[lang] = filepath.Join(DefaultModelsDir(), name)
	}
	return paths
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

func resolveModelPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(DefaultModelsDir(), path)
}
