// Package patternmatcher matches revisions against configured expressions,
// e.g. to classify changing modules.
package patternmatcher

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
)

// Kind names a matching syntax.
type Kind string

const (
	Exact  Kind = "exact"
	Regexp Kind = "regexp"
	Glob   Kind = "glob"
)

// Kinds lists the supported kinds.
var Kinds = []Kind{Exact, Regexp, Glob}

// Matcher reports whether a value matches a compiled expression.
type Matcher interface {
	Matches(value string) bool
	Kind() Kind
	String() string
}

// New compiles expr for the kind.
func New(kind Kind, expr string) (Matcher, error) {
	switch kind {
	case Exact:
		return exactMatcher(expr), nil
	case Regexp:
		re, err := regexp.Compile(`^(?:` + expr + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp %q: %w", expr, err)
		}
		return &regexpMatcher{expr: expr, re: re}, nil
	case Glob:
		g, err := glob.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", expr, err)
		}
		return &globMatcher{expr: expr, g: g}, nil
	default:
		return nil, fmt.Errorf("unknown pattern matcher %q, expected one of %v", kind, Kinds)
	}
}

type exactMatcher string

func (m exactMatcher) Matches(value string) bool { return string(m) == value }
func (exactMatcher) Kind() Kind                   { return Exact }
func (m exactMatcher) String() string             { return string(Exact) + ":" + string(m) }

type regexpMatcher struct {
	expr string
	re   *regexp.Regexp
}

func (m *regexpMatcher) Matches(value string) bool { return m.re.MatchString(value) }
func (*regexpMatcher) Kind() Kind                   { return Regexp }
func (m *regexpMatcher) String() string             { return string(Regexp) + ":" + m.expr }

type globMatcher struct {
	expr string
	g    glob.Glob
}

func (m *globMatcher) Matches(value string) bool { return m.g.Match(value) }
func (*globMatcher) Kind() Kind                   { return Glob }
func (m *globMatcher) String() string             { return string(Glob) + ":" + m.expr }
