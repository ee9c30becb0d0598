// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contract

import (
	"fmt"
	"strings"
)

// HasHeadings requires every listed heading to appear on a line of its own.
// A heading line may be a Markdown heading ("## Source Links"), bold
// ("**Source Links**"), or plain text, optionally ending in a colon.
// Matching is case-insensitive.
type HasHeadings struct {
	Headings []string
}

// Describe implements Contract.
func (h HasHeadings) Describe() string {
	quoted := make([]string, len(h.Headings))
	for i, heading := range h.Headings {
		quoted[i] = fmt.Sprintf("%q", heading)
	}
	return "text containing the headings " + strings.Join(quoted, ", ") + ", each on its own line"
}

// Validate implements Contract. The normalized form is the trimmed text.
func (h HasHeadings) Validate(text string) (string, error) {
	present := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		present[headingKey(line)] = true
	}
	var missing []string
	for _, heading := range h.Headings {
		if !present[headingKey(heading)] {
			missing = append(missing, fmt.Sprintf("%q", heading))
		}
	}
	if len(missing) > 0 {
		return "", violation("missing heading(s) %s", strings.Join(missing, ", "))
	}
	return text, nil
}

// headingKey reduces a candidate heading line to a comparable key.
func headingKey(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.Trim(s, "*_")
	return strings.ToLower(strings.TrimSpace(s))
}

// Section returns the lines following heading up to the next line that
// matches one of stops, or the end of text. It reports false when heading
// does not occur.
func Section(text, heading string, stops ...string) (string, bool) {
	want := headingKey(heading)
	stopKeys := make(map[string]bool, len(stops))
	for _, s := range stops {
		stopKeys[headingKey(s)] = true
	}

	var body []string
	inside := false
	for _, line := range strings.Split(stripFence(text), "\n") {
		key := headingKey(line)
		if !inside {
			if key == want {
				inside = true
			}
			continue
		}
		if stopKeys[key] {
			break
		}
		body = append(body, line)
	}
	if !inside {
		return "", false
	}
	return strings.TrimSpace(strings.Join(body, "\n")), true
}
