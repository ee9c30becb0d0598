// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// listMarkerPattern matches "1. ", "2) ", "- ", "* " and "+ " prefixes.
	listMarkerPattern = regexp.MustCompile(`^(?:\d+[.)]|[-*+])\s+`)

	// markdownLinkPattern captures the target of "[text](url)".
	markdownLinkPattern = regexp.MustCompile(`^\[[^\]]*\]\((\S+)\)$`)

	// embeddedURLPattern finds http(s) URLs inside free text. Balanced
	// parentheses stay part of the URL so "[text](url)" targets still end
	// at the closing parenthesis.
	embeddedURLPattern = regexp.MustCompile(`https?://(?:[^\s<>()\[\]"'` + "`" + `]|\([^\s<>()\[\]"'` + "`" + `]*\))+`)
)

// listHeadings are heading lines tolerated above a URL list.
var listHeadings = map[string]bool{
	"resources used": true,
	"source links":   true,
	"sources":        true,
	"references":     true,
}

// URLList requires every line to be an absolute http(s) URL, optionally
// preceded by a list marker. A heading such as "Resources Used" is dropped.
// Min is the minimum number of distinct URLs (default 1).
type URLList struct {
	Min int
}

// Describe implements Contract.
func (u URLList) Describe() string {
	return fmt.Sprintf("a numbered list of at least %d exact source URLs, one per line, with no other text", u.min())
}

func (u URLList) min() int {
	if u.Min <= 0 {
		return 1
	}
	return u.Min
}

// Validate implements Contract. Duplicates are removed in first-seen order
// and the result is renumbered "1. url".
func (u URLList) Validate(text string) (string, error) {
	var urls []string
	for i, line := range nonBlankLines(text) {
		if isListHeading(line) {
			continue
		}
		candidate := listMarkerPattern.ReplaceAllString(line, "")
		if m := markdownLinkPattern.FindStringSubmatch(candidate); m != nil {
			candidate = m[1]
		}
		candidate = strings.Trim(candidate, "<>")
		if !isAbsoluteURL(candidate) {
			return "", violation("line %d is not a URL: %q", i+1, line)
		}
		urls = append(urls, candidate)
	}
	urls = Dedup(urls)
	if len(urls) < u.min() {
		return "", violation("expected at least %d URLs, got %d", u.min(), len(urls))
	}
	return FormatNumberedList(urls), nil
}

func isListHeading(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	return listHeadings[headingKey(line)]
}

func isAbsoluteURL(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ExtractURLs returns every http(s) URL in text in order of appearance,
// with trailing punctuation removed. Duplicates are kept.
func ExtractURLs(text string) []string {
	matches := embeddedURLPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?*")
		if isAbsoluteURL(m) {
			out = append(out, m)
		}
	}
	return out
}

// Dedup removes exact duplicate strings, keeping the first occurrence.
func Dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
