// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contract checks generated text against structural output contracts.
// Validation is purely textual: it checks shape (numbering, headings, word
// counts, URL lines) and never judges content. Every contract returns a
// normalized form of the text, and validating a normalized text again
// returns it unchanged.
package contract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrViolation is wrapped by every validation failure.
var ErrViolation = errors.New("contract violation")

// Contract is a structural predicate over generated text.
type Contract interface {
	// Validate returns the normalized text, or an error wrapping ErrViolation.
	Validate(raw string) (string, error)

	// Describe returns a short human-readable expectation, used as the
	// generation hint and in corrective feedback.
	Describe() string
}

// Validate checks raw against c after removing a surrounding code fence.
func Validate(raw string, c Contract) (string, error) {
	if c == nil {
		return "", fmt.Errorf("no contract given")
	}
	text := stripFence(raw)
	if text == "" {
		return "", violation("output is empty")
	}
	return c.Validate(text)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, args...))
}

// stripFence trims whitespace and removes one enclosing ``` fence, which
// models often wrap around list or Markdown output.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

// nonBlankLines splits text into trimmed, non-empty lines.
func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
