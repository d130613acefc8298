// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across keyvalues packages.
package types

import "fmt"

// Position is a 0-based line and character offset. Characters are counted
// in runes from the start of the line.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is a half-open source span [Start, End).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos falls inside r.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && pos.Before(r.End)
}

// SymbolKind identifies the shape of a parsed node.
type SymbolKind int

const (
	Pair    SymbolKind = iota // Key with a scalar value
	Object                    // Key with a block of children
	Comment                   // Standalone comment line
)

// String returns the human-readable name of the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case Pair:
		return "Pair"
	case Object:
		return "Object"
	case Comment:
		return "Comment"
	default:
		return "Unknown"
	}
}

// MarshalText lets SymbolKind appear by name in JSON dumps.
func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *SymbolKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Pair":
		*k = Pair
	case "Object":
		*k = Object
	case "Comment":
		*k = Comment
	default:
		return fmt.Errorf("unknown symbol kind %q", text)
	}
	return nil
}

// Symbol is one node of a parsed KeyValues document. A Pair carries Value,
// an Object carries Children; a Comment carries only Comment text.
//
// Keys and values are stored exactly as written between the quotes, escape
// sequences included, so that re-serialisation is lossless.
type Symbol struct {
	Kind        SymbolKind `json:"kind"`
	Key         string     `json:"key,omitempty"`
	KeyQuoted   bool       `json:"keyQuoted,omitempty"`
	Value       string     `json:"value,omitempty"`
	ValueQuoted bool       `json:"valueQuoted,omitempty"`
	Children    []*Symbol  `json:"children,omitempty"`
	Conditional string     `json:"conditional,omitempty"` // Tag text without brackets, e.g. $WIN32
	Comment     string     `json:"comment,omitempty"`     // Text after // on the same line
	Doc         string     `json:"doc,omitempty"`         // Comment lines directly above the symbol

	Range       Range `json:"range"`
	KeyRange    Range `json:"keyRange"`
	DetailRange Range `json:"detailRange"` // Value token for pairs, key token for objects
}

// IsObject reports whether the symbol introduces a nested block.
func (s *Symbol) IsObject() bool {
	return s.Kind == Object
}

// Group is the ordered set of occurrences of one key among siblings.
// Keys are matched case-insensitively; Key holds the first spelling seen.
type Group struct {
	Key         string
	Occurrences []*Symbol
}

// Values returns the scalar value of every Pair occurrence in order.
func (g Group) Values() []string {
	var out []string
	for _, s := range g.Occurrences {
		if s.Kind == Pair {
			out = append(out, s.Value)
		}
	}
	return out
}
