package chainspec

import (
	"regexp"
	"strings"
)

// Placeholders use single-brace {name} syntax. Snippet and runtime
// placeholders share this syntax; they are told apart purely by which
// substitution pass resolves them.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names in text, in order
// of first appearance.
func Placeholders(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces each listed placeholder with its value in a
// single left-to-right pass. Only names present in vars are touched;
// any other placeholder is left literal for a later pass. Substituted
// values are never rescanned, so a value containing {other} stays
// exactly that.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text // Fast path: nothing to substitute
	}

	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
