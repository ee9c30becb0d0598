// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines configuration and record types shared by the
// article-engine packages and the CLI.
package types

import (
	"fmt"
	"time"
)

// GenerationBackend identifies the text generation API.
type GenerationBackend string

const (
	BackendClaude GenerationBackend = "claude"
	BackendGemini GenerationBackend = "gemini"
)

// GenerationConfig holds settings for the text generation backend.
type GenerationConfig struct {
	// Backend selects the generation API: claude or gemini.
	Backend GenerationBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key. Usually loaded from .secrets/ or the
	// environment rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature is the sampling temperature (default 0.8).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the length of one generated response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the HTTP request timeout for one generation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// PipelineConfig holds settings for one article run.
type PipelineConfig struct {
	// ItemCount is the number of subtopics the planner produces (default 3).
	ItemCount int `json:"item_count" yaml:"item_count" mapstructure:"item_count"`

	// MaxAttempts overrides every actor's attempt budget when positive.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// MinWords and MaxWords bound the length of each generated article.
	MinWords int `json:"min_words" yaml:"min_words" mapstructure:"min_words"`
	MaxWords int `json:"max_words" yaml:"max_words" mapstructure:"max_words"`

	// CrewFile is an optional YAML crew definition replacing the built-in one.
	CrewFile string `json:"crew_file,omitempty" yaml:"crew_file,omitempty" mapstructure:"crew_file"`

	// Parallel bounds how many topics run at once (default 1).
	Parallel int `json:"parallel" yaml:"parallel" mapstructure:"parallel"`
}

// OutputConfig controls where compiled documents and bundles are written.
type OutputConfig struct {
	// DownloadsDir defaults to ~/Downloads, created if missing.
	DownloadsDir string `json:"downloads_dir" yaml:"downloads_dir" mapstructure:"downloads_dir"`
}

// ArchiveConfig controls the SQLite run history.
type ArchiveConfig struct {
	// Enabled turns on recording of every run.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file (default "output/history.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups every setting the CLI reads through viper.
type Config struct {
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive" mapstructure:"archive"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Generation: GenerationConfig{
			Backend:     BackendGemini,
			Model:       "gemini-2.0-flash",
			Temperature: 0.8,
			MaxTokens:   4096,
			Timeout:     120 * time.Second,
		},
		Pipeline: PipelineConfig{
			ItemCount: 3,
			MinWords:  400,
			MaxWords:  600,
			Parallel:  1,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "output/history.db",
		},
	}
}

// Validate reports the first setting that cannot drive a run.
func (c Config) Validate() error {
	switch c.Generation.Backend {
	case BackendClaude, BackendGemini:
	default:
		return fmt.Errorf("unsupported generation backend %q: use claude or gemini", c.Generation.Backend)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0,2]", c.Generation.Temperature)
	}
	if c.Pipeline.ItemCount < 1 {
		return fmt.Errorf("item count must be at least 1, got %d", c.Pipeline.ItemCount)
	}
	if c.Pipeline.MinWords < 0 || (c.Pipeline.MaxWords > 0 && c.Pipeline.MaxWords < c.Pipeline.MinWords) {
		return fmt.Errorf("invalid article word range [%d,%d]", c.Pipeline.MinWords, c.Pipeline.MaxWords)
	}
	if c.Pipeline.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative, got %d", c.Pipeline.Parallel)
	}
	return nil
}
