// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/article-engine/internal/httputil"
)

// geminiBaseURL is the Generative Language API root. Package-level var for
// test substitution.
var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiBackend calls the Gemini generateContent API.
type GeminiBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	Temp      float64
	Client    *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends the prompt as one user turn and returns the text parts of
// the first candidate.
func (g *GeminiBackend) Generate(ctx context.Context, r Request) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("%w: no Google API key configured (set GOOGLE_API_KEY or .secrets/google-api-key)", ErrUnavailable)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: r.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.Temp,
			MaxOutputTokens: g.MaxTokens,
		},
	}
	if r.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: r.System}}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, url.PathEscape(strings.TrimPrefix(g.Model, "gemini/")))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := httputil.DoWithRetry(ctx, g.Client, req, 0)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: calling Gemini API: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: Gemini API returned %d: %s", classifyStatus(resp.StatusCode), resp.StatusCode, string(body))
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("%w: decoding Gemini response: %v", ErrTransient, err)
	}
	if gResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrTransient, gResp.PromptFeedback.BlockReason)
	}
	if len(gResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: Gemini API returned no candidates", ErrTransient)
	}

	var b strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty Gemini candidate (finish reason %s)", ErrTransient, gResp.Candidates[0].FinishReason)
	}
	return b.String(), nil
}
