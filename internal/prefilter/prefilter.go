// Package prefilter provides an optional keyword gate that skips obvious spam
// before the LLM call. A disabled or empty filter passes everything, which is
// the default: every collected message then reaches the extractor.
package prefilter

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Filter matches message content against a fixed pattern set in a single
// pass. Patterns are matched case-insensitively.
type Filter struct {
	matcher  *ahocorasick.Matcher
	patterns []string
}

// New builds a filter from the given patterns. nil or empty patterns yield a
// pass-through filter.
func New(patterns []string) *Filter {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if trimmed := strings.TrimSpace(strings.ToLower(p)); trimmed != "" {
			lowered = append(lowered, trimmed)
		}
	}

	f := &Filter{patterns: lowered}
	if len(lowered) > 0 {
		f.matcher = ahocorasick.NewStringMatcher(lowered)
	}
	return f
}

// Match reports whether content hits any configured pattern.
func (f *Filter) Match(content string) bool {
	if f.matcher == nil {
		return false
	}
	return len(f.matcher.Match([]byte(strings.ToLower(content)))) > 0
}

// Patterns returns the normalized pattern set, mainly for logging.
func (f *Filter) Patterns() []string { return f.patterns }
