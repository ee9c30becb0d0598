// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberedLinePattern matches "3. Item" and "3) Item".
var numberedLinePattern = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)

// NumberedList requires a list numbered 1..n with no other lines.
// With AtLeast set, Count is a minimum instead of an exact length.
type NumberedList struct {
	Count   int
	AtLeast bool
}

// Describe implements Contract.
func (n NumberedList) Describe() string {
	if n.AtLeast {
		return fmt.Sprintf("a numbered list of at least %d items (\"1. ...\"), one per line, with no other text", n.Count)
	}
	return fmt.Sprintf("a numbered list of exactly %d items (\"1. ...\"), one per line, with no other text", n.Count)
}

// Validate implements Contract. The normalized form renumbers with "N. ".
func (n NumberedList) Validate(text string) (string, error) {
	items, err := ParseNumberedList(text)
	if err != nil {
		return "", err
	}
	switch {
	case n.AtLeast && len(items) < n.Count:
		return "", violation("expected at least %d numbered items, got %d", n.Count, len(items))
	case !n.AtLeast && len(items) != n.Count:
		return "", violation("expected exactly %d numbered items, got %d", n.Count, len(items))
	}
	return FormatNumberedList(items), nil
}

// ParseNumberedList returns the item texts of a numbered list. Items must
// be numbered consecutively from 1, and every non-blank line must be an item.
func ParseNumberedList(text string) ([]string, error) {
	lines := nonBlankLines(stripFence(text))
	if len(lines) == 0 {
		return nil, violation("no numbered items found")
	}
	items := make([]string, 0, len(lines))
	for i, line := range lines {
		m := numberedLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, violation("line %d is not a numbered item: %q", i+1, line)
		}
		num, err := strconv.Atoi(m[1])
		if err != nil || num != len(items)+1 {
			return nil, violation("item %q is numbered %s, want %d", m[2], m[1], len(items)+1)
		}
		item := strings.TrimSpace(m[2])
		items = append(items, item)
	}
	return items, nil
}

// FormatNumberedList renders items as "1. a\n2. b".
func FormatNumberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, item)
	}
	return b.String()
}
