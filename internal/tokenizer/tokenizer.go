// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tokenizer splits KeyValues text into positioned tokens.
//
// The tokenizer never fails. Malformed input (an unterminated quote, a stray
// bracket, binary garbage) still produces a token so that the parser can
// decide how to report it.
package tokenizer

import (
	"strings"

	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	String      Kind = iota // Quoted or bare string
	BraceOpen               // {
	BraceClose              // }
	Conditional             // [$WIN32]
	Comment                 // // to end of line
	Newline                 // \n, only when newlines are not skipped
	EOF                     // End of input
)

// String returns the human-readable name of the token kind.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case BraceOpen:
		return "'{'"
	case BraceClose:
		return "'}'"
	case Conditional:
		return "conditional"
	case Comment:
		return "comment"
	case Newline:
		return "newline"
	case EOF:
		return "end of file"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit.
type Token struct {
	Kind  Kind
	Value string // String content without quotes, comment text after //, tag text without brackets
	// Quoted is set for strings that were written between double quotes.
	Quoted bool
	// Terminated is false for a quoted string that ran into end of line or
	// end of file before its closing quote.
	Terminated bool
	Range      types.Range
}

// Text returns the token roughly as it appeared in the source, for use in
// error messages.
func (t Token) Text() string {
	switch t.Kind {
	case String:
		if t.Quoted {
			return `"` + t.Value + `"`
		}
		return t.Value
	case BraceOpen:
		return "{"
	case BraceClose:
		return "}"
	case Conditional:
		return "[" + t.Value + "]"
	case Comment:
		return "//" + t.Value
	case Newline:
		return `\n`
	default:
		return "<eof>"
	}
}

// Options configures tokenization.
type Options struct {
	// Multiline allows quoted strings to span line breaks.
	Multiline bool
}

const bom = "\uFEFF"

// cursor is a read position in the source.
type cursor struct {
	pos  int // byte offset
	line int
	char int // rune offset within the line
}

func (c cursor) position() types.Position {
	return types.Position{Line: c.line, Character: c.char}
}

type peekEntry struct {
	skipNewlines bool
	tok          Token
	after        cursor
}

// Tokenizer produces tokens lazily from a source string.
type Tokenizer struct {
	src    string
	opts   Options
	cur    cursor
	peeked *peekEntry
}

// New creates a Tokenizer over text. A leading UTF-8 byte order mark is
// skipped.
func New(text string, opts Options) *Tokenizer {
	t := &Tokenizer{src: text, opts: opts}
	if strings.HasPrefix(text, bom) {
		t.cur.pos = len(bom)
	}
	return t
}

// Peek returns the next token without consuming it. Repeated peeks with
// the same skipNewlines value return the same token.
func (t *Tokenizer) Peek(skipNewlines bool) Token {
	if p := t.peeked; p != nil && p.skipNewlines == skipNewlines {
		return p.tok
	}
	c := t.cur
	tok := t.scan(&c, skipNewlines)
	t.peeked = &peekEntry{skipNewlines: skipNewlines, tok: tok, after: c}
	return tok
}

// Next returns the next token and advances past it. When skipNewlines is
// false, line breaks are reported as Newline tokens.
func (t *Tokenizer) Next(skipNewlines bool) Token {
	if p := t.peeked; p != nil && p.skipNewlines == skipNewlines {
		t.cur = p.after
		t.peeked = nil
		return p.tok
	}
	t.peeked = nil
	return t.scan(&t.cur, skipNewlines)
}

// All drains the tokenizer and returns every token up to and including EOF.
func (t *Tokenizer) All(skipNewlines bool) []Token {
	var out []Token
	for {
		tok := t.Next(skipNewlines)
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func (t *Tokenizer) advance(c *cursor) {
	b := t.src[c.pos]
	c.pos++
	switch {
	case b == '\n':
		c.line++
		c.char = 0
	case b&0xC0 != 0x80:
		// Count lead bytes only, so a multi-byte rune advances one character.
		c.char++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

// scan reads one token starting at c. Every branch except EOF consumes at
// least one byte, so repeated calls always terminate.
func (t *Tokenizer) scan(c *cursor, skipNewlines bool) Token {
	for c.pos < len(t.src) {
		b := t.src[c.pos]
		if isSpace(b) {
			t.advance(c)
			continue
		}
		if b == '\n' {
			if skipNewlines {
				t.advance(c)
				continue
			}
			start := c.position()
			t.advance(c)
			return Token{Kind: Newline, Value: "\n", Terminated: true, Range: types.Range{Start: start, End: c.position()}}
		}
		break
	}

	start := c.position()
	if c.pos >= len(t.src) {
		return Token{Kind: EOF, Terminated: true, Range: types.Range{Start: start, End: start}}
	}

	switch b := t.src[c.pos]; {
	case b == '{':
		t.advance(c)
		return Token{Kind: BraceOpen, Value: "{", Terminated: true, Range: types.Range{Start: start, End: c.position()}}
	case b == '}':
		t.advance(c)
		return Token{Kind: BraceClose, Value: "}", Terminated: true, Range: types.Range{Start: start, End: c.position()}}
	case b == '"':
		return t.scanQuoted(c, start)
	case b == '/' && c.pos+1 < len(t.src) && t.src[c.pos+1] == '/':
		return t.scanComment(c, start)
	case b == '[':
		if tok, ok := t.scanConditional(c, start); ok {
			return tok
		}
	}
	return t.scanBare(c, start)
}

func (t *Tokenizer) scanQuoted(c *cursor, start types.Position) Token {
	t.advance(c) // opening quote
	from := c.pos
	for c.pos < len(t.src) {
		b := t.src[c.pos]
		switch {
		case b == '"':
			value := t.src[from:c.pos]
			t.advance(c)
			return Token{Kind: String, Value: value, Quoted: true, Terminated: true, Range: types.Range{Start: start, End: c.position()}}
		case b == '\n' && !t.opts.Multiline:
			value := strings.TrimSuffix(t.src[from:c.pos], "\r")
			return Token{Kind: String, Value: value, Quoted: true, Range: types.Range{Start: start, End: c.position()}}
		case b == '\\' && c.pos+1 < len(t.src) && (t.src[c.pos+1] != '\n' || t.opts.Multiline):
			t.advance(c)
			t.advance(c)
		default:
			t.advance(c)
		}
	}
	return Token{Kind: String, Value: t.src[from:], Quoted: true, Range: types.Range{Start: start, End: c.position()}}
}

func (t *Tokenizer) scanComment(c *cursor, start types.Position) Token {
	t.advance(c)
	t.advance(c)
	from := c.pos
	for c.pos < len(t.src) && t.src[c.pos] != '\n' {
		t.advance(c)
	}
	value := strings.TrimSuffix(t.src[from:c.pos], "\r")
	return Token{Kind: Comment, Value: value, Terminated: true, Range: types.Range{Start: start, End: c.position()}}
}

// scanConditional recognises [...] closed on the same line. Anything else
// starting with '[' is left to scanBare.
func (t *Tokenizer) scanConditional(c *cursor, start types.Position) (Token, bool) {
	end := -1
	for i := c.pos + 1; i < len(t.src); i++ {
		b := t.src[i]
		if b == ']' {
			end = i
			break
		}
		if b == '\n' || b == '"' || b == '{' || b == '}' || b == '[' {
			break
		}
	}
	if end < 0 {
		return Token{}, false
	}
	value := t.src[c.pos+1 : end]
	for c.pos <= end {
		t.advance(c)
	}
	return Token{Kind: Conditional, Value: value, Terminated: true, Range: types.Range{Start: start, End: c.position()}}, true
}

func (t *Tokenizer) scanBare(c *cursor, start types.Position) Token {
	from := c.pos
	for c.pos < len(t.src) {
		b := t.src[c.pos]
		if isSpace(b) || b == '\n' || b == '"' || b == '{' || b == '}' {
			break
		}
		t.advance(c)
	}
	return Token{Kind: String, Value: t.src[from:c.pos], Terminated: true, Range: types.Range{Start: start, End: c.position()}}
}
