package logic

import (
	"regexp"
	"strings"
)

// Wildcard matches every action type.
const Wildcard = "*"

// TypeMatcher decides whether a logic cares about an action type.
// Implementations must be pure.
type TypeMatcher interface {
	Match(actionType string) bool
	String() string
}

// Any matches every action type.
var Any TypeMatcher = Type(Wildcard)

// MatchesType reports whether m matches actionType. A nil matcher matches
// nothing.
func MatchesType(m TypeMatcher, actionType string) bool {
	if m == nil {
		return false
	}
	return m.Match(actionType)
}

// Type matches a single action type, or everything when set to "*".
type Type string

func (t Type) Match(actionType string) bool {
	return string(t) == Wildcard || string(t) == actionType
}

func (t Type) String() string { return string(t) }

// OneOf matches any of the given action types.
func OneOf(types ...string) TypeMatcher {
	ms := make([]TypeMatcher, 0, len(types))
	for _, t := range types {
		ms = append(ms, Type(t))
	}
	return anyOf(ms)
}

// AnyOf matches when any of the given matchers matches.
func AnyOf(matchers ...TypeMatcher) TypeMatcher {
	return anyOf(matchers)
}

type anyOf []TypeMatcher

func (m anyOf) Match(actionType string) bool {
	for _, x := range m {
		if MatchesType(x, actionType) {
			return true
		}
	}
	return false
}

func (m anyOf) String() string {
	parts := make([]string, 0, len(m))
	for _, x := range m {
		if x != nil {
			parts = append(parts, x.String())
		}
	}
	return strings.Join(parts, ",")
}

// Pattern delegates matching to a regular expression.
func Pattern(re *regexp.Regexp) TypeMatcher {
	return pattern{re: re}
}

// MustPattern compiles expr and panics if it is invalid.
func MustPattern(expr string) TypeMatcher {
	return Pattern(regexp.MustCompile(expr))
}

type pattern struct {
	re *regexp.Regexp
}

func (p pattern) Match(actionType string) bool {
	return p.re != nil && p.re.MatchString(actionType)
}

func (p pattern) String() string {
	if p.re == nil {
		return ""
	}
	return "/" + p.re.String() + "/"
}

// Func adapts a predicate into a matcher.
func Func(name string, fn func(actionType string) bool) TypeMatcher {
	return funcMatcher{name: name, fn: fn}
}

type funcMatcher struct {
	name string
	fn   func(string) bool
}

func (f funcMatcher) Match(actionType string) bool { return f.fn != nil && f.fn(actionType) }

func (f funcMatcher) String() string { return f.name }
