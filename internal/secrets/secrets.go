// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value. Keys missing from the
// directory fall back to well-known environment variables.
//
// Supported key files: anthropic-api-key, google-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/article-engine/pkg/types"
)

// Key file names.
const (
	AnthropicKey = "anthropic-api-key"
	GoogleKey    = "google-api-key"
)

// envFallback maps key files to the environment variables consulted when
// the file is absent.
var envFallback = map[string][]string{
	AnthropicKey: {"ANTHROPIC_API_KEY"},
	GoogleKey:    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
}

// backendKeys maps each generation backend to its key file.
var backendKeys = map[types.GenerationBackend]string{
	types.BackendClaude: AnthropicKey,
	types.BackendGemini: GoogleKey,
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", slog.String("name", name), slog.Any("error", err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the secret named key, preferring the loaded files and
// then the key's environment variables.
func Lookup(loaded map[string]string, key string) (string, bool) {
	if v := loaded[key]; v != "" {
		return v, true
	}
	for _, env := range envFallback[key] {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, true
		}
	}
	return "", false
}

// APIKey returns the key for backend. An empty result is not an error
// here; the backend reports the missing credential when first called.
func APIKey(loaded map[string]string, backend types.GenerationBackend) string {
	key, ok := backendKeys[backend]
	if !ok {
		return ""
	}
	v, _ := Lookup(loaded, key)
	return v
}
