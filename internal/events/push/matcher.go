package push

import "strings"

// Matcher matches an event field against a subscription pattern. The
// zero value matches nothing; build one with ParseMatcher. Matchers are
// immutable and safe for concurrent use.
type Matcher struct {
	any  bool
	alts []string
}

// ParseMatcher compiles a pattern: "*" matches anything, "a|b|c"
// matches any of the alternatives, anything else matches literally.
// Empty alternatives ("a||b") are dropped.
func ParseMatcher(pattern string) Matcher {
	if pattern == "*" {
		return Matcher{any: true}
	}

	var alts []string
	for _, alt := range strings.Split(pattern, "|") {
		if alt != "" {
			alts = append(alts, alt)
		}
	}
	return Matcher{alts: alts}
}

// Matches reports whether the value satisfies the pattern.
func (m Matcher) Matches(value string) bool {
	if m.any {
		return true
	}
	for _, alt := range m.alts {
		if alt == value {
			return true
		}
	}
	return false
}

// String returns the pattern in its source form.
func (m Matcher) String() string {
	if m.any {
		return "*"
	}
	if len(m.alts) == 0 {
		return "(none)"
	}
	return strings.Join(m.alts, "|")
}
