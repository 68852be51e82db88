package utils

import (
	"path/filepath"
	"regexp"
)

// patternSet holds one side of an include/exclude filter. Every pattern is
// kept as a glob and, when it compiles, as a regular expression too: globs
// run against the base name, regexes against the full path.
type patternSet struct {
	globs   []string
	regexps []*regexp.Regexp
}

func newPatternSet(patterns []string) patternSet {
	set := patternSet{globs: append([]string(nil), patterns...)}
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			set.regexps = append(set.regexps, re)
		}
	}
	return set
}

func (s patternSet) empty() bool {
	return len(s.globs) == 0 && len(s.regexps) == 0
}

func (s patternSet) match(path string) bool {
	base := filepath.Base(path)
	for _, glob := range s.globs {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
	}
	for _, re := range s.regexps {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// PatternMatcher narrows a batch scan to the files a user cares about: a path
// must match the include side when one is given, and must not match the
// exclude side. A nil matcher includes everything.
type PatternMatcher struct {
	include patternSet
	exclude patternSet
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		include: newPatternSet(includePatterns),
		exclude: newPatternSet(excludePatterns),
	}
}

func (m *PatternMatcher) ShouldInclude(path string) bool {
	if m == nil {
		return true
	}
	if !m.include.empty() && !m.include.match(path) {
		return false
	}
	return m.exclude.empty() || !m.exclude.match(path)
}
