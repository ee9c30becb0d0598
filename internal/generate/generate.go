// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate provides the text generation capability consumed by the
// pipeline. A Generator turns one prompt into one text response; it knows
// nothing about stages, contracts, or retries beyond HTTP rate limiting.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/article-engine/pkg/types"
)

var (
	// ErrUnavailable marks failures that retrying cannot fix: a missing or
	// rejected credential, an unknown model, a malformed request.
	ErrUnavailable = errors.New("generation unavailable")

	// ErrTransient marks failures that may succeed on another attempt:
	// network errors, overloaded or failing servers, unparsable responses.
	ErrTransient = errors.New("generation error")
)

// Request is one generation call.
type Request struct {
	// Stage and Actor identify the caller for logging and test doubles.
	Stage string
	Actor string

	// System carries the persona instructions.
	System string

	// Prompt is the fully resolved task instruction.
	Prompt string

	// Hint describes the expected output shape.
	Hint string

	// Attempt is 1 for the first call of a stage and grows with retries.
	Attempt int
}

// Generator produces text for a prompt. Implementations wrap ErrUnavailable
// or ErrTransient so callers can classify failures with errors.Is.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New builds the backend selected by cfg. A missing API key is not an error
// here; the backend reports ErrUnavailable on first use so the failure is
// attributed to the stage that needed it.
func New(cfg types.GenerationConfig, client *http.Client) (Generator, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Backend {
	case types.BackendClaude:
		return &ClaudeBackend{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Temp:      cfg.Temperature,
			Client:    client,
		}, nil
	case types.BackendGemini:
		return &GeminiBackend{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Temp:      cfg.Temperature,
			Client:    client,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported generation backend %q", cfg.Backend)
	}
}

// classifyStatus maps a non-200 HTTP status to ErrUnavailable or ErrTransient.
func classifyStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ErrUnavailable
	default:
		return ErrTransient
	}
}
