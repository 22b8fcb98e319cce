package dupescan

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// ExcludeMatcher filters paths out of a scan based on regular expression
// patterns. Patterns are matched against the slash-normalised path relative
// to the scan root.
type ExcludeMatcher struct {
	patterns []*regexp.Regexp
}

// NewExcludeMatcher compiles the given patterns. An invalid pattern is a
// configuration error and aborts the run before any work begins.
func NewExcludeMatcher(patternStrs []string) (*ExcludeMatcher, error) {
	em := &ExcludeMatcher{
		patterns: make([]*regexp.Regexp, 0, len(patternStrs)),
	}

	for _, patternStr := range patternStrs {
		if patternStr == "" {
			continue
		}
		pattern, err := regexp.Compile(patternStr)
		if err != nil {
			return nil, &ConfigError{
				Option: "exclude pattern",
				Err:    fmt.Errorf("%s: %w", patternStr, err),
			}
		}
		em.patterns = append(em.patterns, pattern)
	}

	return em, nil
}

// ShouldExclude checks if a path should be excluded based on patterns
func (em *ExcludeMatcher) ShouldExclude(relativePath string) bool {
	if em == nil {
		return false
	}

	// Normalise path separators to forward slashes for consistent pattern matching
	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range em.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// HasPatterns returns true if there are any exclude patterns loaded
func (em *ExcludeMatcher) HasPatterns() bool {
	return em != nil && len(em.patterns) > 0
}
