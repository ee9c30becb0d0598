// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/secrets"
	"github.com/pdiddy/article-engine/pkg/types"
)

// configDefaults flattens cfg into viper keys so every setting can come
// from the config file or an ARTICLE_ENGINE_* variable.
func configDefaults(cfg types.Config) map[string]any {
	return map[string]any{
		"generation.backend":     string(cfg.Generation.Backend),
		"generation.model":       cfg.Generation.Model,
		"generation.api_key":     cfg.Generation.APIKey,
		"generation.temperature": cfg.Generation.Temperature,
		"generation.max_tokens":  cfg.Generation.MaxTokens,
		"generation.timeout":     cfg.Generation.Timeout,
		"pipeline.item_count":    cfg.Pipeline.ItemCount,
		"pipeline.max_attempts":  cfg.Pipeline.MaxAttempts,
		"pipeline.min_words":     cfg.Pipeline.MinWords,
		"pipeline.max_words":     cfg.Pipeline.MaxWords,
		"pipeline.crew_file":     cfg.Pipeline.CrewFile,
		"pipeline.parallel":      cfg.Pipeline.Parallel,
		"output.downloads_dir":   cfg.Output.DownloadsDir,
		"archive.enabled":        cfg.Archive.Enabled,
		"archive.path":           cfg.Archive.Path,
	}
}

// flagKeys maps command flags to the settings they override.
var flagKeys = map[string]string{
	"backend":      "generation.backend",
	"model":        "generation.model",
	"temperature":  "generation.temperature",
	"count":        "pipeline.item_count",
	"max-attempts": "pipeline.max_attempts",
	"min-words":    "pipeline.min_words",
	"max-words":    "pipeline.max_words",
	"crew":         "pipeline.crew_file",
	"parallel":     "pipeline.parallel",
	"output":       "output.downloads_dir",
	"archive":      "archive.path",
	"no-archive":   "archive.enabled",
}

// loadConfig resolves the effective configuration: defaults, then the
// config file and environment, then flags the user set on cmd.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	flags := cmd.Flags()
	for name := range flagKeys {
		if !flags.Changed(name) {
			continue
		}
		var err error
		switch name {
		case "backend":
			var v string
			v, err = flags.GetString(name)
			cfg.Generation.Backend = types.GenerationBackend(v)
		case "model":
			cfg.Generation.Model, err = flags.GetString(name)
		case "temperature":
			cfg.Generation.Temperature, err = flags.GetFloat64(name)
		case "count":
			cfg.Pipeline.ItemCount, err = flags.GetInt(name)
		case "max-attempts":
			cfg.Pipeline.MaxAttempts, err = flags.GetInt(name)
		case "min-words":
			cfg.Pipeline.MinWords, err = flags.GetInt(name)
		case "max-words":
			cfg.Pipeline.MaxWords, err = flags.GetInt(name)
		case "crew":
			cfg.Pipeline.CrewFile, err = flags.GetString(name)
		case "parallel":
			cfg.Pipeline.Parallel, err = flags.GetInt(name)
		case "output":
			cfg.Output.DownloadsDir, err = flags.GetString(name)
		case "archive":
			cfg.Archive.Path, err = flags.GetString(name)
		case "no-archive":
			var off bool
			off, err = flags.GetBool(name)
			cfg.Archive.Enabled = !off
		}
		if err != nil {
			return cfg, fmt.Errorf("reading --%s: %w", name, err)
		}
	}

	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = secrets.APIKey(loadedSecrets, cfg.Generation.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// topicsFromFlags returns the --topic values, or the TOPIC environment
// variable when none were given.
func topicsFromFlags(cmd *cobra.Command) ([]string, error) {
	values, _ := cmd.Flags().GetStringArray("topic")
	var topics []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			topics = append(topics, v)
		}
	}
	if len(topics) == 0 {
		if env := strings.TrimSpace(os.Getenv("TOPIC")); env != "" {
			topics = []string{env}
		}
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("a topic is required: pass --topic or set TOPIC")
	}
	return topics, nil
}

// addGenerationFlags registers the flags shared by the generating commands.
func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("topic", nil, "theme to write about (repeatable; default $TOPIC)")
	cmd.Flags().IntP("count", "n", 0, "number of subtopics (default from config: 3)")
	cmd.Flags().String("backend", "", "generation backend: claude or gemini")
	cmd.Flags().String("model", "", "model identifier")
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().Int("max-attempts", 0, "attempt budget per stage, overriding each persona")
	cmd.Flags().String("crew", "", "crew definition YAML replacing the built-in crew")
	cmd.Flags().String("output", "", "directory for generated documents (default ~/Downloads)")
	cmd.Flags().String("archive", "", "run history database")
	cmd.Flags().Bool("no-archive", false, "do not record the run in the history database")
}
