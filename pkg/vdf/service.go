// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package vdf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/petar-djukic/keyvalues/internal/config"
	"github.com/petar-djukic/keyvalues/internal/format"
	"github.com/petar-djukic/keyvalues/internal/index"
	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/internal/resolve"
	"github.com/petar-djukic/keyvalues/internal/vpk"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Service owns the index, the archive cache and the link resolver for one
// workspace. It is safe for concurrent use.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	index    *index.Index
	includer *index.Includer
	cache    *vpk.Cache
	resolver *resolve.Resolver

	mu   sync.RWMutex
	docs map[string]*Document
}

// New validates cfg and returns a ready-to-use Service with an empty
// index.
func New(cfg Config) (*Service, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	cache := vpk.NewCache(cfg.Fs, cfg.Logger)
	return &Service{
		cfg:      cfg,
		logger:   cfg.Logger,
		index:    index.New(),
		includer: &index.Includer{Fs: cfg.Fs},
		cache:    cache,
		resolver: &resolve.Resolver{
			Fs:          cfg.Fs,
			SearchPaths: cfg.SearchPaths,
			Archives:    cfg.Archives,
			Cache:       cache,
		},
		docs: make(map[string]*Document),
	}, nil
}

// validateConfig checks fields that have no sensible default.
func validateConfig(cfg Config) error {
	for _, s := range cfg.Schemas {
		if s.Name == "" {
			return fmt.Errorf("schema without a name")
		}
	}
	if cfg.Format.TabSize < 0 {
		return fmt.Errorf("Format.TabSize must not be negative")
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("Concurrency must not be negative")
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = index.DefaultExtensions
	}
}

// Schema returns the schema that applies to uri.
func (s *Service) Schema(uri string) types.Schema {
	return config.SchemaFor(s.cfg.Schemas, uri)
}

func (s *Service) parserOptions(uri string) parser.Options {
	return parser.Options{Multiline: s.Schema(uri).Multiline}
}

// Open parses text as the content of uri, indexes it, and indexes every
// file it includes. A syntax error does not fail Open; the partial tree
// is indexed and the error is reported on the Document.
func (s *Service) Open(uri, text string) *Document {
	symbols, err := parser.Parse(text, s.parserOptions(uri))
	doc := &Document{URI: uri, Symbols: symbols, Err: err}
	if err != nil {
		s.logger.Debug("syntax error", "uri", uri, "error", err)
	}
	s.index.Update(uri, symbols, s.Schema(uri))

	included, incErr := s.includer.Expand(uri, symbols, nil)
	for _, inc := range included {
		s.index.Update(inc.URI, inc.Symbols, s.Schema(inc.URI))
		doc.Included = append(doc.Included, inc.URI)
	}
	if incErr != nil {
		s.logger.Warn("include", "uri", uri, "error", incErr)
		doc.IncludeErr = incErr
	}

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// OpenFile reads path from the file system and opens it.
func (s *Service) OpenFile(path string) (*Document, error) {
	data, err := afero.ReadFile(s.cfg.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.Open(filepath.ToSlash(path), string(data)), nil
}

// Close forgets uri and its index entries.
func (s *Service) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
	s.index.Remove(uri)
}

// Document returns the last opened version of uri.
func (s *Service) Document(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

// Scan parses and indexes every matching file below root. Files that do
// not parse are indexed with their partial trees and listed in the
// result's errors.
func (s *Service) Scan(root string) (*index.ScanResult, error) {
	res, err := index.Scan(s.cfg.Fs, root, index.ScanOptions{
		Extensions:    s.cfg.Extensions,
		Concurrency:   s.cfg.Concurrency,
		ParserOptions: s.parserOptions,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, d := range res.Documents {
		s.docs[d.URI] = &Document{URI: d.URI, Symbols: d.Symbols, Err: d.Err}
	}
	s.mu.Unlock()

	for _, d := range res.Documents {
		s.index.Update(d.URI, d.Symbols, s.Schema(d.URI))
	}
	for _, e := range res.Errors {
		s.logger.Warn("skipped content", "path", e.Path, "error", e.Err)
	}
	s.logger.Debug("scan complete", "root", root, "files", len(res.Documents))
	return res, nil
}

// Definitions returns every definition of name under kind.
func (s *Service) Definitions(name, kind string) []types.Definition {
	return s.index.FindDefinition(name, kind)
}

// References returns every reference to name under kind.
func (s *Service) References(name, kind string) []types.Reference {
	return s.index.FindReferences(name, kind)
}

// AllDefinitions lists the definitions of kind, e.g. to offer completions.
func (s *Service) AllDefinitions(kind string) []types.Definition {
	return s.index.Definitions(kind)
}

// Unresolved lists references that no definition matches.
func (s *Service) Unresolved() []types.Reference {
	return s.index.Unresolved()
}

// URIs lists the indexed documents.
func (s *Service) URIs() []string {
	return s.index.URIs()
}

// DefinitionAt returns the definitions of the name under pos in uri,
// whether pos is on a reference or on a definition itself.
func (s *Service) DefinitionAt(uri string, pos types.Position) []types.Definition {
	kind, name, ok := s.index.At(uri, pos)
	if !ok {
		return nil
	}
	return s.index.FindDefinition(name, kind)
}

// ReferencesAt returns the references to the name under pos in uri.
func (s *Service) ReferencesAt(uri string, pos types.Position) []types.Reference {
	kind, name, ok := s.index.At(uri, pos)
	if !ok {
		return nil
	}
	return s.index.FindReferences(name, kind)
}

// FormatOptions returns the formatter options for uri.
func (s *Service) FormatOptions(uri string) format.Options {
	opts := s.cfg.Format
	if s.cfg.SortKeys {
		opts.KeyOrder = s.Schema(uri).KeyOrder
	}
	return opts
}

// Format returns text formatted with the options for uri. Text with syntax
// errors is returned unchanged together with the error.
func (s *Service) Format(uri, text string) (string, error) {
	out, err := format.Format(text, s.parserOptions(uri), s.FormatOptions(uri))
	if err != nil {
		return text, err
	}
	return out, nil
}

// FormatFile formats path in place. It reports whether the content
// changed; unchanged files are not written.
func (s *Service) FormatFile(path string) (bool, error) {
	data, err := afero.ReadFile(s.cfg.Fs, path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	out, err := s.Format(path, string(data))
	if err != nil {
		return false, fmt.Errorf("formatting %s: %w", path, err)
	}
	if out == string(data) {
		return false, nil
	}
	if err := format.WriteFile(s.cfg.Fs, path, []byte(out)); err != nil {
		return false, err
	}
	s.logger.Debug("formatted", "path", path)
	return true, nil
}

// Links lists every pair in the open document uri whose key a link rule
// of its schema selects, with the locations the value resolves to.
// Configured archives are opened on first use and held until Shutdown.
func (s *Service) Links(uri string) ([]Link, error) {
	doc, ok := s.Document(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	rules := s.Schema(uri).Links

	var links []Link
	var firstErr error
	parser.Walk(doc.Symbols, func(_ []string, sym *types.Symbol) bool {
		rule, ok := resolve.Match(sym, rules)
		if !ok {
			return true
		}
		locs, err := s.resolver.Resolve(sym.Value, rule)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		links = append(links, Link{
			Symbol:     sym,
			Candidates: resolve.Candidates(sym.Value, rule),
			Locations:  locs,
		})
		return true
	})
	return links, firstErr
}

// Shutdown releases the archives held for link resolution. The Service
// stays usable; a later lookup opens them again.
func (s *Service) Shutdown() {
	s.resolver.Close()
}

// ArchivesOpen reports how many archives the Service's cache holds open.
func (s *Service) ArchivesOpen() int {
	return s.cache.Len()
}

// ReadLocation returns the contents of a resolved link.
func (s *Service) ReadLocation(loc types.Location) ([]byte, error) {
	return s.resolver.ReadFile(loc)
}

// OpenArchive returns a shared handle to the archive at dirPath. Callers
// release it when done.
func (s *Service) OpenArchive(dirPath string) (*vpk.Handle, error) {
	return s.cache.Acquire(dirPath)
}

// Changed re-reads and re-indexes path.
func (s *Service) Changed(path string) {
	if _, err := s.OpenFile(path); err != nil {
		s.logger.Warn("re-index", "path", path, "error", err)
	}
}

// Removed drops path from the index.
func (s *Service) Removed(path string) {
	s.Close(filepath.ToSlash(path))
}

// Watch keeps the index current with the files below root until ctx is
// done. It only works on the OS file system.
func (s *Service) Watch(ctx context.Context, root string) error {
	return index.Watch(ctx, root, s.cfg.Extensions, s, s.logger)
}
