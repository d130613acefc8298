// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package format re-emits KeyValues symbol trees as text.
//
// Values of adjacent key/value pairs are aligned on a tab-stop grid, the
// way hand-formatted Valve files are laid out. Object blocks and comment
// lines end an alignment run.
package format

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Indentation selects the whitespace used for indentation and alignment.
type Indentation int

const (
	Tabs Indentation = iota
	Spaces
)

// Line endings.
const (
	LF   = "\n"
	CRLF = "\r\n"
)

const defaultTabSize = 4

// Options configures Stringify.
type Options struct {
	Indentation Indentation
	TabSize     int    // Width of a tab stop (default 4)
	Newline     string // LF or CRLF (default LF)
	// KeyOrder sorts siblings by their position in this list, compared
	// case-insensitively. Unlisted keys keep their relative order and go
	// last. Nil leaves the source order untouched.
	KeyOrder []string
}

// DefaultOptions returns tab indentation, 4-column stops and LF endings.
func DefaultOptions() Options {
	return Options{Indentation: Tabs, TabSize: defaultTabSize, Newline: LF}
}

func (o Options) withDefaults() Options {
	if o.TabSize <= 0 {
		o.TabSize = defaultTabSize
	}
	if o.Newline != CRLF {
		o.Newline = LF
	}
	return o
}

// ParseNewline maps a configuration value ("lf", "crlf", "\n", "\r\n")
// to a line ending.
func ParseNewline(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "lf", "\n":
		return LF, nil
	case "crlf", "\r\n":
		return CRLF, nil
	default:
		return "", fmt.Errorf("unknown newline %q", s)
	}
}

// ParseIndentation maps "tabs" or "spaces" to an Indentation.
func ParseIndentation(s string) (Indentation, error) {
	switch strings.ToLower(s) {
	case "", "tab", "tabs":
		return Tabs, nil
	case "space", "spaces":
		return Spaces, nil
	default:
		return Tabs, fmt.Errorf("unknown indentation %q", s)
	}
}

// Format parses text and re-emits it. Documents with syntax errors are not
// formatted; the error is returned instead.
func Format(text string, popts parser.Options, opts Options) (string, error) {
	symbols, err := parser.Parse(text, popts)
	if err != nil {
		return "", err
	}
	return Stringify(symbols, opts), nil
}

// Stringify renders symbols as text.
func Stringify(symbols []*types.Symbol, opts Options) string {
	w := &writer{opts: opts.withDefaults()}
	w.block(symbols, 0)
	return w.b.String()
}

type writer struct {
	b    strings.Builder
	opts Options
}

func (w *writer) indent(depth int) {
	if w.opts.Indentation == Spaces {
		w.b.WriteString(strings.Repeat(" ", depth*w.opts.TabSize))
		return
	}
	w.b.WriteString(strings.Repeat("\t", depth))
}

func (w *writer) newline() {
	w.b.WriteString(w.opts.Newline)
}

func (w *writer) block(symbols []*types.Symbol, depth int) {
	blank := make(map[*types.Symbol]bool)
	for i := 1; i < len(symbols); i++ {
		if blankLineBetween(symbols[i-1], symbols[i]) {
			blank[symbols[i]] = true
		}
	}
	if w.opts.KeyOrder != nil {
		symbols = sortByKeyOrder(symbols, w.opts.KeyOrder)
	}
	widths := runWidths(symbols)

	for i, s := range symbols {
		if i > 0 && blank[s] {
			w.newline()
		}

		switch s.Kind {
		case types.Comment:
			w.indent(depth)
			w.b.WriteString("//")
			w.b.WriteString(s.Comment)
			w.newline()

		case types.Object:
			w.indent(depth)
			w.b.WriteString(renderToken(s.Key, s.KeyQuoted))
			if s.Conditional != "" {
				w.b.WriteString(" [" + s.Conditional + "]")
			}
			w.newline()
			w.indent(depth)
			w.b.WriteString("{")
			w.newline()
			w.block(s.Children, depth+1)
			w.indent(depth)
			w.b.WriteString("}")
			w.comment(s.Comment)
			w.newline()

		default:
			key := renderToken(s.Key, s.KeyQuoted)
			w.indent(depth)
			w.b.WriteString(key)
			w.b.WriteString(w.padding(widths[i], utf8.RuneCountInString(key)))
			w.b.WriteString(renderToken(s.Value, s.ValueQuoted))
			if s.Conditional != "" {
				w.b.WriteString(" [" + s.Conditional + "]")
			}
			w.comment(s.Comment)
			w.newline()
		}
	}
}

func (w *writer) comment(text string) {
	if text == "" {
		return
	}
	w.b.WriteString(" //")
	w.b.WriteString(text)
}

// padding returns the whitespace between a key of width keyWidth and its
// value so that every value in a run starts on the same tab stop. For
// tabs this is ceil(longest/T) - ceil(key/T) + 2 tab characters, where the
// widths include the quotes.
func (w *writer) padding(longest, keyWidth int) string {
	t := w.opts.TabSize
	if w.opts.Indentation == Spaces {
		target := (ceilDiv(longest, t) + 1) * t
		return strings.Repeat(" ", target-keyWidth)
	}
	return strings.Repeat("\t", ceilDiv(longest, t)-ceilDiv(keyWidth, t)+2)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// runWidths returns, for each Pair, the widest rendered key among the
// contiguous run of pairs it belongs to.
func runWidths(symbols []*types.Symbol) []int {
	widths := make([]int, len(symbols))
	start := 0
	flush := func(end int) {
		longest := 0
		for j := start; j < end; j++ {
			if n := utf8.RuneCountInString(renderToken(symbols[j].Key, symbols[j].KeyQuoted)); n > longest {
				longest = n
			}
		}
		for j := start; j < end; j++ {
			widths[j] = longest
		}
	}
	for i, s := range symbols {
		if s.Kind != types.Pair {
			flush(i)
			start = i + 1
		}
	}
	flush(len(symbols))
	return widths
}

// blankLineBetween reports whether the source had at least one empty line
// between two parsed siblings. Symbols built in code have zero ranges and
// never get blank lines.
func blankLineBetween(prev, cur *types.Symbol) bool {
	if prev == nil || prev.Range.End == (types.Position{}) || cur.Range.End == (types.Position{}) {
		return false
	}
	return cur.Range.Start.Line > prev.Range.End.Line+1
}

// renderToken writes s bare when it was bare and stays unambiguous, and
// quoted otherwise.
func renderToken(s string, quoted bool) string {
	if quoted || needsQuotes(s) {
		return `"` + s + `"`
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "[") {
		return true
	}
	return strings.ContainsAny(s, " \t\r\n\f\v\"{}")
}

// sortByKeyOrder stably sorts siblings by their rank in order. Comment
// lines move together with the symbol that follows them.
func sortByKeyOrder(symbols []*types.Symbol, order []string) []*types.Symbol {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		lk := parser.FoldKey(k)
		if _, ok := rank[lk]; !ok {
			rank[lk] = i
		}
	}

	type unit struct {
		symbols []*types.Symbol
		rank    int
	}
	var units []unit
	var pending []*types.Symbol
	for _, s := range symbols {
		pending = append(pending, s)
		if s.Kind == types.Comment {
			continue
		}
		r, ok := rank[parser.FoldKey(s.Key)]
		if !ok {
			r = len(order)
		}
		units = append(units, unit{symbols: pending, rank: r})
		pending = nil
	}
	if len(pending) > 0 {
		units = append(units, unit{symbols: pending, rank: len(order) + 1})
	}

	sort.SliceStable(units, func(i, j int) bool { return units[i].rank < units[j].rank })

	out := make([]*types.Symbol, 0, len(symbols))
	for _, u := range units {
		out = append(out, u.symbols...)
	}
	return out
}
