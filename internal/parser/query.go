// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package parser

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/petar-djukic/keyvalues/pkg/types"
)

// includeKeys are the keys that pull another file into a document.
var includeKeys = []string{"#base", "#include"}

// FoldKey returns the case-folded form of a key or name. Every
// case-insensitive comparison of keys goes through it.
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// EqualKey reports whether two keys are equal under FoldKey.
func EqualKey(a, b string) bool {
	return a == b || FoldKey(a) == FoldKey(b)
}

// Path reads a value that names a file. Backslashes in such values are
// directory separators, not escapes, so nothing is unescaped.
func Path(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, `\`, "/"))
}

// Groups folds siblings into ordered duplicate groups. Keys compare
// case-insensitively; groups appear in order of first occurrence and each
// group lists its occurrences in source order. Comment nodes are skipped.
func Groups(symbols []*types.Symbol) []types.Group {
	var groups []types.Group
	index := make(map[string]int)
	for _, s := range symbols {
		if s.Kind == types.Comment {
			continue
		}
		k := FoldKey(s.Key)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, types.Group{Key: s.Key})
		}
		groups[i].Occurrences = append(groups[i].Occurrences, s)
	}
	return groups
}

// Find returns every sibling whose key equals key, ignoring case.
func Find(symbols []*types.Symbol, key string) []*types.Symbol {
	var out []*types.Symbol
	for _, s := range symbols {
		if s.Kind != types.Comment && EqualKey(s.Key, key) {
			out = append(out, s)
		}
	}
	return out
}

// Value returns the first scalar value stored under key among symbols.
func Value(symbols []*types.Symbol, key string) (string, bool) {
	for _, s := range Find(symbols, key) {
		if s.Kind == types.Pair {
			return s.Value, true
		}
	}
	return "", false
}

// Walk visits every non-comment symbol depth-first. path holds the keys of
// the symbol's ancestors, outermost first. Returning false from fn skips
// the symbol's children.
func Walk(symbols []*types.Symbol, fn func(path []string, s *types.Symbol) bool) {
	walk(nil, symbols, fn)
}

func walk(path []string, symbols []*types.Symbol, fn func([]string, *types.Symbol) bool) {
	for _, s := range symbols {
		if s.Kind == types.Comment {
			continue
		}
		if !fn(path, s) || s.Kind != types.Object {
			continue
		}
		walk(append(path[:len(path):len(path)], s.Key), s.Children, fn)
	}
}

// At returns the innermost non-comment symbol whose range contains pos.
func At(symbols []*types.Symbol, pos types.Position) *types.Symbol {
	for _, s := range symbols {
		if s.Kind == types.Comment || !s.Range.Contains(pos) {
			continue
		}
		if s.Kind == types.Object {
			if inner := At(s.Children, pos); inner != nil {
				return inner
			}
		}
		return s
	}
	return nil
}

// Includes returns the top-level include directives (#base, #include) in
// order of appearance.
func Includes(symbols []*types.Symbol) []*types.Symbol {
	var out []*types.Symbol
	for _, s := range symbols {
		if s.Kind != types.Pair {
			continue
		}
		for _, k := range includeKeys {
			if EqualKey(s.Key, k) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Unquote resolves the escape sequences KeyValues recognises inside quoted
// strings: \" \\ \n \t. Unknown escapes are kept as written.
func Unquote(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Quote is the inverse of Unquote.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return r.Replace(s)
}
