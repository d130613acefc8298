// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package parser

import (
	"fmt"

	"github.com/petar-djukic/keyvalues/internal/tokenizer"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// SyntaxError describes a structural problem in a document: an unbalanced
// brace, a key without a value, an unterminated string. Range points at the
// offending token so callers can turn the error into a diagnostic.
type SyntaxError struct {
	Message string
	Token   string // Offending token as written
	Range   types.Range
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("line %d, col %d: %s", e.Range.Start.Line+1, e.Range.Start.Character+1, e.Message)
	}
	return fmt.Sprintf("line %d, col %d: %s near %s", e.Range.Start.Line+1, e.Range.Start.Character+1, e.Message, e.Token)
}

func newSyntaxError(msg string, tok tokenizer.Token) *SyntaxError {
	text := tok.Text()
	if tok.Kind == tokenizer.EOF {
		text = ""
	}
	return &SyntaxError{Message: msg, Token: text, Range: tok.Range}
}
