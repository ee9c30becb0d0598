// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-engine/internal/httputil"
	"github.com/pdiddy/article-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps on 429 tests.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func withClaudeURL(t *testing.T, u string) {
	t.Helper()
	old := claudeAPIURL
	claudeAPIURL = u
	t.Cleanup(func() { claudeAPIURL = old })
}

func withGeminiURL(t *testing.T, u string) {
	t.Helper()
	old := geminiBaseURL
	geminiBaseURL = u
	t.Cleanup(func() { geminiBaseURL = old })
}

func TestClaudeBackendGenerate(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"1. Solar"},{"type":"text","text":"\n2. Wind"}]}`))
	}))
	defer ts.Close()
	withClaudeURL(t, ts.URL)

	b := &ClaudeBackend{APIKey: "test-key", Model: "claude-test", Temp: 0.8, Client: ts.Client()}
	text, err := b.Generate(context.Background(), Request{System: "You are a planner.", Prompt: "List topics"})
	require.NoError(t, err)

	assert.Equal(t, "1. Solar\n2. Wind", text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 4096, got.MaxTokens)
	assert.Equal(t, "You are a planner.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "List topics", got.Messages[0].Content)
}

func TestClaudeBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized is unavailable", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, wantErr: ErrUnavailable},
		{name: "server error is transient", status: http.StatusInternalServerError, body: `oops`, wantErr: ErrTransient},
		{name: "empty content is transient", status: http.StatusOK, body: `{"content":[]}`, wantErr: ErrTransient},
		{name: "bad json is transient", status: http.StatusOK, body: `{`, wantErr: ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			withClaudeURL(t, ts.URL)

			b := &ClaudeBackend{APIKey: "k", Model: "m", Client: ts.Client()}
			_, err := b.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMissingKeyIsUnavailable(t *testing.T) {
	for _, backend := range []types.GenerationBackend{types.BackendClaude, types.BackendGemini} {
		t.Run(string(backend), func(t *testing.T) {
			g, err := New(types.GenerationConfig{Backend: backend, Model: "m"}, nil)
			require.NoError(t, err)
			_, err = g.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(types.GenerationConfig{Backend: "llama"}, nil)
	assert.Error(t, err)
}

func TestGeminiBackendGenerate(t *testing.T) {
	var got geminiRequest
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Research Findings"},{"text":"\nSource Links"}]},"finishReason":"STOP"}]}`))
	}))
	defer ts.Close()
	withGeminiURL(t, ts.URL)

	g := &GeminiBackend{APIKey: "g-key", Model: "gemini/gemini-2.0-flash", Temp: 0.8, MaxTokens: 1024, Client: ts.Client()}
	text, err := g.Generate(context.Background(), Request{System: "persona", Prompt: "research"})
	require.NoError(t, err)

	assert.Equal(t, "Research Findings\nSource Links", text)
	assert.Equal(t, "/gemini-2.0-flash:generateContent", path)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "persona", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "research", got.Contents[0].Parts[0].Text)
	assert.InDelta(t, 0.8, got.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 1024, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "forbidden is unavailable", status: http.StatusForbidden, body: `{}`, wantErr: ErrUnavailable},
		{name: "unknown model is unavailable", status: http.StatusNotFound, body: `{}`, wantErr: ErrUnavailable},
		{name: "blocked prompt is transient", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: ErrTransient},
		{name: "no candidates is transient", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: ErrTransient},
		{name: "bad gateway is transient", status: http.StatusBadGateway, body: ``, wantErr: ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			withGeminiURL(t, ts.URL)

			g := &GeminiBackend{APIKey: "k", Model: "m", Client: ts.Client()}
			_, err := g.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFuncAdapter(t *testing.T) {
	var g Generator = Func(func(_ context.Context, r Request) (string, error) {
		return r.Stage + ":" + r.Prompt, nil
	})
	out, err := g.Generate(context.Background(), Request{Stage: "plan", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "plan:x", out)
}
