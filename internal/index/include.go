// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package index

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// IncludeCycleError reports a #base chain that leads back to a file that
// is still being expanded. Chain starts and ends with the repeated file.
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

// Document is a parsed file. Err holds the syntax error, if any; Symbols
// then holds the part of the tree built before it.
type Document struct {
	URI     string
	Symbols []*types.Symbol
	Err     error
}

// Includer follows #base and #include directives.
type Includer struct {
	Fs      afero.Fs
	Options parser.Options
}

// Expand returns the documents reachable through the include directives of
// symbols, which were parsed from uri. Each document appears once, in
// depth-first order. expanding lists the files whose expansion is in
// progress, outermost first; pass nil for a fresh expansion.
//
// Problems with one include (a cycle, a missing file) do not stop the
// others; they are joined into the returned error.
func (in *Includer) Expand(uri string, symbols []*types.Symbol, expanding []string) ([]Document, error) {
	seen := map[string]bool{uri: true}
	var docs []Document
	err := in.expand(uri, symbols, append(expanding[:len(expanding):len(expanding)], uri), seen, &docs)
	return docs, err
}

func (in *Includer) expand(uri string, symbols []*types.Symbol, chain []string, seen map[string]bool, docs *[]Document) error {
	var errs []error
	for _, inc := range parser.Includes(symbols) {
		target := path.Join(path.Dir(uri), parser.Path(inc.Value))

		if i := indexOf(chain, target); i >= 0 {
			cycle := append(append([]string{}, chain[i:]...), target)
			errs = append(errs, &IncludeCycleError{Chain: cycle})
			continue
		}
		if seen[target] {
			continue
		}
		seen[target] = true

		data, err := afero.ReadFile(in.Fs, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("include %s from %s: %w", target, uri, err))
			continue
		}
		children, perr := parser.Parse(string(data), in.Options)
		*docs = append(*docs, Document{URI: target, Symbols: children, Err: perr})

		next := append(chain[:len(chain):len(chain)], target)
		if err := in.expand(target, children, next, seen, docs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
