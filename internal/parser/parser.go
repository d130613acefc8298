// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package parser builds positioned symbol trees from KeyValues text.
//
// The grammar is a sequence of `key value` pairs and `key { ... }` blocks.
// Either form may carry a bracketed conditional tag and a trailing line
// comment. Sibling keys need not be unique; every occurrence is kept in
// source order and Groups exposes them as ordered duplicate groups.
package parser

import (
	"strings"

	"github.com/petar-djukic/keyvalues/internal/tokenizer"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Options configures parsing.
type Options struct {
	// Multiline allows quoted values to span line breaks.
	Multiline bool
}

// Parse parses text into a symbol tree. On a syntax error it returns the
// symbols built so far together with a *SyntaxError, so callers may still
// show a partial tree.
func Parse(text string, opts Options) ([]*types.Symbol, error) {
	p := &parser{tk: tokenizer.New(text, tokenizer.Options{Multiline: opts.Multiline})}
	symbols, _, err := p.parseBlock(false)
	return symbols, err
}

type parser struct {
	tk *tokenizer.Tokenizer
}

// docRun accumulates adjacent comment lines that may document the next key.
type docRun struct {
	lines    []string
	lastLine int
}

func (d *docRun) add(tok tokenizer.Token) {
	if len(d.lines) > 0 && tok.Range.Start.Line != d.lastLine+1 {
		d.lines = d.lines[:0]
	}
	d.lines = append(d.lines, strings.TrimSpace(tok.Value))
	d.lastLine = tok.Range.Start.Line
}

func (d *docRun) take(line int) string {
	defer func() { d.lines = d.lines[:0] }()
	if len(d.lines) == 0 || line != d.lastLine+1 {
		return ""
	}
	return strings.Join(d.lines, "\n")
}

// parseBlock reads entries until '}' (nested) or end of file (top level).
// It returns the entries and the token that ended the block.
func (p *parser) parseBlock(nested bool) ([]*types.Symbol, tokenizer.Token, error) {
	var out []*types.Symbol
	var doc docRun

	for {
		tok := p.tk.Next(true)
		switch tok.Kind {
		case tokenizer.EOF:
			if nested {
				return out, tok, newSyntaxError("missing closing '}'", tok)
			}
			return out, tok, nil

		case tokenizer.BraceClose:
			if nested {
				return out, tok, nil
			}
			return out, tok, newSyntaxError("unexpected '}'", tok)

		case tokenizer.Comment:
			out = append(out, &types.Symbol{
				Kind:        types.Comment,
				Comment:     tok.Value,
				Range:       tok.Range,
				DetailRange: tok.Range,
			})
			doc.add(tok)

		case tokenizer.BraceOpen:
			return out, tok, newSyntaxError("'{' without a key", tok)

		case tokenizer.Conditional:
			return out, tok, newSyntaxError("conditional without a key", tok)

		default:
			sym, err := p.parseEntry(tok)
			if sym != nil {
				sym.Doc = doc.take(sym.Range.Start.Line)
				out = append(out, sym)
			}
			if err != nil {
				return out, tok, err
			}
		}
	}
}

// parseEntry parses what follows a key token: an optional conditional,
// then either a block or a scalar value.
func (p *parser) parseEntry(key tokenizer.Token) (*types.Symbol, error) {
	sym := &types.Symbol{
		Key:       key.Value,
		KeyQuoted: key.Quoted,
		KeyRange:  key.Range,
	}
	if !key.Terminated {
		return nil, newSyntaxError("unterminated string", key)
	}

	next := p.tk.Peek(true)
	if next.Kind == tokenizer.Conditional {
		p.tk.Next(true)
		sym.Conditional = next.Value
		next = p.tk.Peek(true)
	}

	switch next.Kind {
	case tokenizer.BraceOpen:
		p.tk.Next(true)
		sym.Kind = types.Object
		sym.DetailRange = key.Range
		children, end, err := p.parseBlock(true)
		sym.Children = children
		sym.Range = types.Range{Start: key.Range.Start, End: end.Range.End}
		if err != nil {
			return sym, err
		}
		p.trailingComment(sym)
		return sym, nil

	case tokenizer.String:
		value := p.tk.Next(true)
		sym.Kind = types.Pair
		sym.Value = value.Value
		sym.ValueQuoted = value.Quoted
		sym.DetailRange = value.Range
		sym.Range = types.Range{Start: key.Range.Start, End: value.Range.End}
		if !value.Terminated {
			return sym, newSyntaxError("unterminated string", value)
		}
		if tag := p.tk.Peek(false); tag.Kind == tokenizer.Conditional {
			p.tk.Next(false)
			sym.Range.End = tag.Range.End
			if sym.Conditional != "" {
				return sym, newSyntaxError("duplicate conditional", tag)
			}
			sym.Conditional = tag.Value
		}
		p.trailingComment(sym)
		return sym, nil

	default:
		return nil, &SyntaxError{
			Message: "key " + key.Text() + " has no value",
			Token:   next.Text(),
			Range:   key.Range,
		}
	}
}

// trailingComment attaches a comment that sits on the same line as the end
// of sym.
func (p *parser) trailingComment(sym *types.Symbol) {
	tok := p.tk.Peek(false)
	if tok.Kind != tokenizer.Comment || tok.Range.Start.Line != sym.Range.End.Line {
		return
	}
	p.tk.Next(false)
	sym.Comment = tok.Value
}
