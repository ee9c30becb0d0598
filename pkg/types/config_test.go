// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 400, cfg.Pipeline.MinWords)
	assert.Equal(t, 600, cfg.Pipeline.MaxWords)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Generation.Backend = "openai" }, "unsupported generation backend"},
		{"no model", func(c *Config) { c.Generation.Model = "" }, "model is required"},
		{"temperature too high", func(c *Config) { c.Generation.Temperature = 2.5 }, "temperature"},
		{"zero items", func(c *Config) { c.Pipeline.ItemCount = 0 }, "item count"},
		{"inverted word range", func(c *Config) { c.Pipeline.MinWords, c.Pipeline.MaxWords = 500, 100 }, "word range"},
		{"negative parallel", func(c *Config) { c.Pipeline.Parallel = -1 }, "parallel"},
		{"claude backend", func(c *Config) { c.Generation.Backend = BackendClaude }, ""},
		{"open word range", func(c *Config) { c.Pipeline.MaxWords = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestRunRecordDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := RunRecord{StartedAt: start, FinishedAt: start.Add(42 * time.Second)}
	assert.Equal(t, 42*time.Second, r.Duration())
}
