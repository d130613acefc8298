// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package resolve maps values that name game files (materials, sounds,
// included scripts) to the places those files actually exist: loose files
// under search paths and entries inside VPK archives.
package resolve

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/internal/vpk"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Resolver looks for files on Fs below each of SearchPaths, then inside
// each of Archives (paths of _dir.vpk files), in that order.
//
// With a Cache, each archive is acquired on first use and its handle is
// held until Close. Without one, archives are opened per call.
type Resolver struct {
	Fs          afero.Fs
	SearchPaths []string
	Archives    []string
	Cache       *vpk.Cache

	mu      sync.Mutex
	handles map[string]*vpk.Handle
}

// Candidates returns the relative paths value may refer to under rule.
func Candidates(value string, rule types.LinkRule) []string {
	v := strings.TrimLeft(parser.Path(value), "/")
	if v == "" {
		return nil
	}
	prefix := strings.Trim(parser.Path(rule.Prefix), "/")
	if prefix != "" && !strings.HasPrefix(parser.FoldKey(v), parser.FoldKey(prefix)+"/") {
		v = prefix + "/" + v
	}
	v = path.Clean(v)

	if len(rule.Extensions) == 0 {
		return []string{v}
	}
	ext := path.Ext(v)
	for _, e := range rule.Extensions {
		if strings.EqualFold(ext, e) {
			return []string{v}
		}
	}
	out := make([]string, 0, len(rule.Extensions))
	for _, e := range rule.Extensions {
		out = append(out, v+e)
	}
	return out
}

// Match returns the first link rule that applies to s.
func Match(s *types.Symbol, rules []types.LinkRule) (types.LinkRule, bool) {
	if s == nil || s.Kind != types.Pair {
		return types.LinkRule{}, false
	}
	for _, r := range rules {
		for _, k := range r.Keys {
			if parser.EqualKey(k, s.Key) {
				return r, true
			}
		}
	}
	return types.LinkRule{}, false
}

// Resolve returns every location where value, read through rule, exists.
// Archives that cannot be opened are reported in the error; locations found
// elsewhere are still returned.
func (r *Resolver) Resolve(value string, rule types.LinkRule) ([]types.Location, error) {
	candidates := Candidates(value, rule)
	if len(candidates) == 0 {
		return nil, nil
	}

	var locs []types.Location
	for _, root := range r.SearchPaths {
		for _, c := range candidates {
			p := filepath.Join(root, filepath.FromSlash(c))
			info, err := r.Fs.Stat(p)
			if err == nil && !info.IsDir() {
				locs = append(locs, types.Location{Path: p})
			}
		}
	}

	var errs []error
	for _, a := range r.Archives {
		found, err := r.inArchive(a, candidates)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locs = append(locs, found...)
	}
	return locs, errors.Join(errs...)
}

func (r *Resolver) inArchive(dirPath string, candidates []string) ([]types.Location, error) {
	a, err := r.open(dirPath)
	if err != nil {
		return nil, err
	}

	var locs []types.Location
	for _, c := range candidates {
		lc := strings.ToLower(c)
		info, err := a.Stat(lc)
		if err == nil && !info.IsDir {
			locs = append(locs, types.Location{Path: lc, Archive: dirPath})
		}
	}
	return locs, nil
}

// ReadFile returns the contents of a resolved location.
func (r *Resolver) ReadFile(loc types.Location) ([]byte, error) {
	if loc.Archive == "" {
		return afero.ReadFile(r.Fs, loc.Path)
	}
	a, err := r.open(loc.Archive)
	if err != nil {
		return nil, err
	}
	return a.ReadFile(loc.Path)
}

// open returns the archive at dirPath, reusing a held handle.
func (r *Resolver) open(dirPath string) (*vpk.Archive, error) {
	if r.Cache == nil {
		a, err := vpk.Open(r.Fs, dirPath)
		if err != nil {
			return nil, fmt.Errorf("opening archive %s: %w", dirPath, err)
		}
		return a, nil
	}

	r.mu.Lock()
	h, ok := r.handles[dirPath]
	r.mu.Unlock()
	if ok {
		return h.Archive, nil
	}

	h, err := r.Cache.Acquire(dirPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", dirPath, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.handles[dirPath]; ok {
		h.Release()
		return held.Archive, nil
	}
	if r.handles == nil {
		r.handles = make(map[string]*vpk.Handle)
	}
	r.handles[dirPath] = h
	return h.Archive, nil
}

// Close releases the archive handles the resolver holds. A later lookup
// acquires them again.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p, h := range r.handles {
		h.Release()
		delete(r.handles, p)
	}
}
