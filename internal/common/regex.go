package common

import (
	"fmt"
	"regexp"
	"sync"
)

var (
	patternMu    sync.RWMutex
	patternCache = make(map[string]*regexp.Regexp)
)

// MatchRegex reports whether pattern matches text. Matching is case
// insensitive since label names are stored normalized to lowercase. Compiled
// patterns are cached; filtering a label list calls this once per row.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(text), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[pattern]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}

	patternMu.Lock()
	patternCache[pattern] = re
	patternMu.Unlock()
	return re, nil
}
