// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package index

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/petar-djukic/keyvalues/internal/parser"
)

// DefaultExtensions are the file extensions Scan picks up when none are
// given.
var DefaultExtensions = []string{".vdf", ".pop", ".vmt", ".res", ".txt"}

// skipDirs contains directory names that Scan never descends into.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
}

// ScanResult holds the output of a workspace scan. Documents are sorted by
// URI and include files that failed to parse.
type ScanResult struct {
	Documents []Document
	Errors    []ScanError
}

// ScanError records a failure for a single file.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ScanError) Unwrap() error { return e.Err }

// ScanOptions configures Scan.
type ScanOptions struct {
	Extensions  []string // Defaults to DefaultExtensions
	Concurrency int      // Defaults to runtime.NumCPU()
	// ParserOptions picks parser options per file, e.g. multiline strings
	// for one dialect only. Nil parses everything with the zero Options.
	ParserOptions func(path string) parser.Options
}

// Scan walks root on fsys and parses every matching file in parallel.
// URIs are slash-separated paths on fsys.
//
// It skips .git/, vendor/ and node_modules/ and whatever the .gitignore
// files below root exclude. Read and syntax errors are collected in ScanResult.Errors
// and do not abort the scan.
func Scan(fsys afero.Fs, root string, opts ScanOptions) (*ScanResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	ignore := &ignorer{}

	var paths []string
	err = afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		rel := relParts(root, p)
		if info.IsDir() {
			if p == root {
				ignore.load(fsys, p, rel)
				return nil
			}
			if skipDirs[info.Name()] || ignore.match(rel, true) {
				return filepath.SkipDir
			}
			ignore.load(fsys, p, rel)
			return nil
		}
		if !HasExtension(p, opts.Extensions) || ignore.match(rel, false) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	result := &ScanResult{}
	if len(paths) == 0 {
		return result, nil
	}

	p := pool.NewWithResults[Document]().WithMaxGoroutines(opts.Concurrency)
	for _, fp := range paths {
		p.Go(func() Document {
			uri := filepath.ToSlash(fp)
			data, err := afero.ReadFile(fsys, fp)
			if err != nil {
				return Document{URI: uri, Err: err}
			}
			var popts parser.Options
			if opts.ParserOptions != nil {
				popts = opts.ParserOptions(fp)
			}
			symbols, err := parser.Parse(string(data), popts)
			return Document{URI: uri, Symbols: symbols, Err: err}
		})
	}
	docs := p.Wait()

	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	for _, d := range docs {
		if d.Err != nil {
			result.Errors = append(result.Errors, ScanError{Path: d.URI, Err: d.Err})
		}
	}
	result.Documents = docs
	return result, nil
}

// HasExtension reports whether p ends in one of exts, ignoring case.
func HasExtension(p string, exts []string) bool {
	ext := path.Ext(filepath.ToSlash(p))
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// relParts splits p, relative to root, into path components.
func relParts(root, p string) []string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// ignorer collects the .gitignore patterns of the directories visited so
// far. Patterns of a nested .gitignore apply below its directory only.
type ignorer struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// load reads the .gitignore in dir, if any. domain is dir relative to the
// scan root. Unreadable files are treated as absent.
func (g *ignorer) load(fsys afero.Fs, dir string, domain []string) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g.patterns = append(g.patterns, gitignore.ParsePattern(line, domain))
	}
	g.matcher = gitignore.NewMatcher(g.patterns)
}

func (g *ignorer) match(rel []string, isDir bool) bool {
	return g.matcher != nil && len(rel) > 0 && g.matcher.Match(rel, isDir)
}
