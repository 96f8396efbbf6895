package allowlist

import (
	"fmt"
	"regexp"
)

// PatternError reports an allowList entry that is not a valid regular expression
type PatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid allowList pattern #%d %q: %v", e.Index+1, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher tests variable names against a compiled allowList.
// It is immutable after Compile and safe for concurrent use.
type Matcher struct {
	patterns []*regexp.Regexp
}

// Compile compiles every pattern. Patterns are searched, not anchored:
// "KEY" matches "MY_KEY_2" unless the author writes "^KEY$".
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &PatternError{Index: i, Pattern: pattern, Err: err}
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Match reports whether any pattern matches name. A nil Matcher matches nothing.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Matches compiles patterns and tests name in one step
func Matches(name string, patterns []string) (bool, error) {
	m, err := Compile(patterns)
	if err != nil {
		return false, err
	}
	return m.Match(name), nil
}
