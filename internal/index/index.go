// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package index maintains cross-file definition and reference maps for
// KeyValues documents, expands #base includes, and scans workspaces.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Normalize folds a name for comparison: surrounding space is trimmed,
// escapes are resolved and case is folded.
func Normalize(name string) string {
	return parser.FoldKey(strings.TrimSpace(parser.Unquote(name)))
}

type nameKey struct {
	kind string
	name string
}

// document holds what one uri contributed, so it can be pruned.
type document struct {
	defs []types.Definition
	refs []types.Reference
}

// Index maps definition kinds and names to the documents that declare and
// reference them. Replacing a document's entries is atomic with respect to
// readers.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*document
	defs map[nameKey]map[string][]types.Definition
	refs map[nameKey]map[string][]types.Reference
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		docs: make(map[string]*document),
		defs: make(map[nameKey]map[string][]types.Definition),
		refs: make(map[nameKey]map[string][]types.Reference),
	}
}

// Collect walks symbols and returns the definitions and references the
// schema's rules select.
func Collect(uri string, symbols []*types.Symbol, schema types.Schema) ([]types.Definition, []types.Reference) {
	var defs []types.Definition
	var refs []types.Reference

	parser.Walk(symbols, func(path []string, s *types.Symbol) bool {
		for _, r := range schema.Definitions {
			if d, ok := matchDefinition(r, path, s); ok {
				d.URI = uri
				defs = append(defs, d)
			}
		}
		if s.Kind != types.Pair {
			return true
		}
		for _, r := range schema.References {
			if !containsFold(r.Keys, s.Key) {
				continue
			}
			if len(r.Parent) > 0 && !matchPath(path, r.Parent) {
				continue
			}
			name := Normalize(s.Value)
			if name == "" {
				continue
			}
			refs = append(refs, types.Reference{Kind: r.Kind, Name: name, Symbol: s, URI: uri, Range: s.DetailRange})
		}
		return true
	})
	return defs, refs
}

func matchDefinition(r types.DefinitionRule, path []string, s *types.Symbol) (types.Definition, bool) {
	if !matchPath(path, r.Parent) {
		return types.Definition{}, false
	}
	if r.RequireChildren && (s.Kind != types.Object || len(s.Children) == 0) {
		return types.Definition{}, false
	}
	if r.IDKey == "" {
		return types.Definition{Kind: r.Kind, Name: Normalize(s.Key), Symbol: s, Range: s.KeyRange}, true
	}
	if s.Kind != types.Object {
		return types.Definition{}, false
	}
	for _, c := range parser.Find(s.Children, r.IDKey) {
		if c.Kind == types.Pair && Normalize(c.Value) != "" {
			return types.Definition{Kind: r.Kind, Name: Normalize(c.Value), Symbol: s, Range: c.DetailRange}, true
		}
	}
	return types.Definition{}, false
}

// matchPath compares ancestor keys against a rule path; "*" matches any
// one key.
func matchPath(path, rule []string) bool {
	if len(path) != len(rule) {
		return false
	}
	for i, seg := range rule {
		if seg != "*" && !parser.EqualKey(seg, path[i]) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if parser.EqualKey(v, s) {
			return true
		}
	}
	return false
}

// Update replaces everything recorded for uri with the definitions and
// references found in symbols.
func (ix *Index) Update(uri string, symbols []*types.Symbol, schema types.Schema) {
	defs, refs := Collect(uri, symbols, schema)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(uri)

	doc := &document{defs: defs, refs: refs}
	ix.docs[uri] = doc
	for _, d := range defs {
		k := nameKey{kind: d.Kind, name: d.Name}
		if ix.defs[k] == nil {
			ix.defs[k] = make(map[string][]types.Definition)
		}
		ix.defs[k][uri] = append(ix.defs[k][uri], d)
	}
	for _, r := range refs {
		k := nameKey{kind: r.Kind, name: r.Name}
		if ix.refs[k] == nil {
			ix.refs[k] = make(map[string][]types.Reference)
		}
		ix.refs[k][uri] = append(ix.refs[k][uri], r)
	}
}

// Remove forgets everything recorded for uri.
func (ix *Index) Remove(uri string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(uri)
}

func (ix *Index) removeLocked(uri string) {
	doc, ok := ix.docs[uri]
	if !ok {
		return
	}
	for _, d := range doc.defs {
		k := nameKey{kind: d.Kind, name: d.Name}
		delete(ix.defs[k], uri)
		if len(ix.defs[k]) == 0 {
			delete(ix.defs, k)
		}
	}
	for _, r := range doc.refs {
		k := nameKey{kind: r.Kind, name: r.Name}
		delete(ix.refs[k], uri)
		if len(ix.refs[k]) == 0 {
			delete(ix.refs, k)
		}
	}
	delete(ix.docs, uri)
}

// FindDefinition returns every definition of name under kind, across all
// documents, ordered by uri and position.
func (ix *Index) FindDefinition(name, kind string) []types.Definition {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return flatten(ix.defs[nameKey{kind: kind, name: Normalize(name)}], defLess)
}

// FindReferences returns every reference to name under kind, across all
// documents, ordered by uri and position.
func (ix *Index) FindReferences(name, kind string) []types.Reference {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return flatten(ix.refs[nameKey{kind: kind, name: Normalize(name)}], refLess)
}

// Definitions returns all definitions of kind, ordered by name, uri and
// position.
func (ix *Index) Definitions(kind string) []types.Definition {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []types.Definition
	for k, byURI := range ix.defs {
		if k.kind != kind {
			continue
		}
		for _, defs := range byURI {
			out = append(out, defs...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return defLess(out[i], out[j])
	})
	return out
}

// Unresolved returns references whose name has no definition of the same
// kind anywhere in the index.
func (ix *Index) Unresolved() []types.Reference {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []types.Reference
	for k, byURI := range ix.refs {
		if len(ix.defs[k]) > 0 {
			continue
		}
		for _, refs := range byURI {
			out = append(out, refs...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return refLess(out[i], out[j]) })
	return out
}

// At returns the kind and name of the definition or reference in uri whose
// range contains pos.
func (ix *Index) At(uri string, pos types.Position) (kind, name string, ok bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, found := ix.docs[uri]
	if !found {
		return "", "", false
	}
	for _, r := range doc.refs {
		if r.Range.Contains(pos) {
			return r.Kind, r.Name, true
		}
	}
	for _, d := range doc.defs {
		if d.Range.Contains(pos) {
			return d.Kind, d.Name, true
		}
	}
	return "", "", false
}

// URIs returns the indexed document uris, sorted.
func (ix *Index) URIs() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.docs))
	for uri := range ix.docs {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

func flatten[T any](byURI map[string][]T, less func(a, b T) bool) []T {
	if len(byURI) == 0 {
		return nil
	}
	var out []T
	for _, items := range byURI {
		out = append(out, items...)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func defLess(a, b types.Definition) bool {
	if a.URI != b.URI {
		return a.URI < b.URI
	}
	return a.Range.Start.Before(b.Range.Start)
}

func refLess(a, b types.Reference) bool {
	if a.URI != b.URI {
		return a.URI < b.URI
	}
	return a.Range.Start.Before(b.Range.Start)
}
