package logic

import "strings"

// DefaultTopicSeparator splits hierarchical action types such as
// "user/profile/updated".
const DefaultTopicSeparator = "/"

// Topic matches hierarchical action types segment by segment.
// "*" and "+" match exactly one segment, "#" matches zero or more.
//
//	Topic("user/*/updated", "")  matches "user/42/updated"
//	Topic("user.#", ".")         matches "user", "user.a", "user.a.b"
func Topic(pattern, separator string) TypeMatcher {
	if separator == "" {
		separator = DefaultTopicSeparator
	}
	return topic{
		pattern: pattern,
		sep:     separator,
		parts:   strings.Split(pattern, separator),
	}
}

type topic struct {
	pattern string
	sep     string
	parts   []string
}

func (t topic) String() string { return t.pattern }

func (t topic) Match(actionType string) bool {
	if t.pattern == actionType {
		return true
	}
	return matchSegments(t.parts, strings.Split(actionType, t.sep))
}

// matchSegments runs a rolling-row DP so "#" may appear anywhere.
func matchSegments(pattern, segments []string) bool {
	n := len(segments)
	prev := make([]bool, n+1)
	cur := make([]bool, n+1)
	prev[0] = true

	for _, p := range pattern {
		cur[0] = p == "#" && prev[0]
		for j := 1; j <= n; j++ {
			switch p {
			case "#":
				cur[j] = prev[j] || cur[j-1]
			case "*", "+":
				cur[j] = prev[j-1]
			default:
				cur[j] = prev[j-1] && p == segments[j-1]
			}
		}
		prev, cur = cur, prev
	}

	return prev[n]
}
