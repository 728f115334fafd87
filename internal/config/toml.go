// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Log      LogConfig         `toml:"log"`
	Server   ServerConfig      `toml:"server"`
	Policy   PolicyConfig      `toml:"policy"`
	Pacing   PacingConfig      `toml:"pacing"`
	Audio    AudioConfig       `toml:"audio"`
	Models   map[string]string `toml:"models"`
	Datasets DatasetsConfig    `toml:"datasets"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	DB   *string `toml:"db"`
}

// PolicyConfig maps scoring settings. Durations are in seconds.
type PolicyConfig struct {
	MaxAttempts  *int     `toml:"max-attempts"`
	Threshold    *float64 `toml:"threshold"`
	ListenWindow *float64 `toml:"listen-window"`
	PollInterval *float64 `toml:"poll-interval"`
}

// PacingConfig maps the delays after each event. Durations are in seconds.
type PacingConfig struct {
	AfterPrompt    *float64 `toml:"after-prompt"`
	AfterTimeout   *float64 `toml:"after-timeout"`
	AfterCorrect   *float64 `toml:"after-correct"`
	AfterIncorrect *float64 `toml:"after-incorrect"`
	AfterFailed    *float64 `toml:"after-failed"`
}

// AudioConfig maps capture format settings.
type AudioConfig struct {
	SampleRate   *int `toml:"sample-rate"`
	Channels     *int `toml:"channels"`
	PeriodFrames *int `toml:"period-frames"`
}

// DatasetsConfig maps prompt dataset settings.
type DatasetsConfig struct {
	Dir        *string `toml:"dir"`
	SampleSize *int    `toml:"sample-size"`
	Fallback   *bool   `toml:"fallback"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the configured values on base.
func (c PolicyConfig) Apply(base model.Policy) model.Policy {
	if c.MaxAttempts != nil {
		base.MaxAttempts = *c.MaxAttempts
	}
	if c.Threshold != nil {
		base.Threshold = *c.Threshold
	}
	applySeconds(&base.ListenWindow, c.ListenWindow)
	applySeconds(&base.PollInterval, c.PollInterval)
	return base
}

// Apply overlays the configured values on base.
func (c PacingConfig) Apply(base model.Pacing) model.Pacing {
	applySeconds(&base.AfterPrompt, c.AfterPrompt)
	applySeconds(&base.AfterTimeout, c.AfterTimeout)
	applySeconds(&base.AfterCorrect, c.AfterCorrect)
	applySeconds(&base.AfterIncorrect, c.AfterIncorrect)
	applySeconds(&base.AfterFailed, c.AfterFailed)
	return base
}

// Apply overlays the configured values on base.
func (c AudioConfig) Apply(base capture.Format) capture.Format {
	if c.SampleRate != nil {
		base.SampleRate = *c.SampleRate
	}
	if c.Channels != nil {
		base.Channels = *c.Channels
	}
	if c.PeriodFrames != nil {
		base.PeriodFrames = *c.PeriodFrames
	}
	return base
}

// ModelPaths merges configured model directories over the defaults.
// Relative paths resolve against DefaultModelsDir.
func (c FileConfig) ModelPaths() map[string]string {
	paths := DefaultModelPaths()
	for lang, path := range c.Models {
		paths[lang] = resolveModelPath(path)
	}
	return paths
}

func applySeconds(target *time.Duration, value *float64) {
	if value == nil {
		return
	}
	*target = time.Duration(*value * float64(time.Second))
}
