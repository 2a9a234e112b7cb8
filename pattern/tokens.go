package pattern

import (
	"strings"
)

// Substitution tokens understood in resource patterns.
const (
	TokenOrganisation = "organisation"
	TokenOrganization = "organization"
	TokenModule       = "module"
	TokenBranch       = "branch"
	TokenRevision     = "revision"
	TokenArtifact     = "artifact"
	TokenType         = "type"
	TokenExtension    = "ext"
	TokenClassifier   = "classifier"
)

// RevisionToken is the literal revision placeholder.
const RevisionToken = "[" + TokenRevision + "]"

// resolveFunc returns the substitution for a token. present reports whether
// the token counts as set for optional section handling.
type resolveFunc func(token string) (value string, present bool)

// substitute replaces every [token] in s. An optional section "( ... )" is
// emitted only if every token inside it is present and non-empty.
// Unknown tokens resolve through fn like any other token, so the result
// never contains an unresolved placeholder unless fn keeps one on purpose.
func substitute(s string, fn resolveFunc) string {
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '(':
			end := strings.IndexByte(s[i+1:], ')')
			if end < 0 {
				out.WriteString(s[i:])
				return out.String()
			}
			section := s[i+1 : i+1+end]
			if strings.IndexByte(section, '(') >= 0 {
				// nested sections are not supported; treat the bracket literally
				out.WriteByte(c)
				i++
				continue
			}
			if text, ok := substituteSection(section, fn); ok {
				out.WriteString(text)
			}
			i += end + 2
		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				out.WriteString(s[i:])
				return out.String()
			}
			value, _ := fn(s[i+1 : i+1+end])
			out.WriteString(value)
			i += end + 2
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func substituteSection(section string, fn resolveFunc) (string, bool) {
	complete := true
	text := substitute(section, func(token string) (string, bool) {
		value, present := fn(token)
		if !present || value == "" {
			complete = false
		}
		return value, present
	})
	return text, complete
}

// tokensOf returns all token names referenced in s, in order of appearance.
func tokensOf(s string) []string {
	var tokens []string
	for {
		start := strings.IndexByte(s, '[')
		if start < 0 {
			return tokens
		}
		end := strings.IndexByte(s[start:], ']')
		if end < 0 {
			return tokens
		}
		tokens = append(tokens, s[start+1:start+end])
		s = s[start+end+1:]
	}
}
