// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contract

import (
	"fmt"
	"strings"
)

// WordCountRange bounds the number of whitespace-separated words.
// Max of 0 means no upper bound.
type WordCountRange struct {
	Min int
	Max int
}

// Describe implements Contract.
func (w WordCountRange) Describe() string {
	if w.Max <= 0 {
		return fmt.Sprintf("at least %d words", w.Min)
	}
	return fmt.Sprintf("between %d and %d words", w.Min, w.Max)
}

// Validate implements Contract. The normalized form is the trimmed text.
func (w WordCountRange) Validate(text string) (string, error) {
	n := CountWords(text)
	if n < w.Min {
		return "", violation("text has %d words, need at least %d", n, w.Min)
	}
	if w.Max > 0 && n > w.Max {
		return "", violation("text has %d words, allowed at most %d", n, w.Max)
	}
	return text, nil
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
