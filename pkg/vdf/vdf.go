// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package vdf is the public entry point for working with Valve KeyValues
// files: parsing, cross-file definitions and references, formatting,
// game-file links and VPK archives, held together by a Service.
package vdf

import (
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/petar-djukic/keyvalues/internal/format"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

// Error types for the Service API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrNotOpen       = errors.New("document is not open")
)

// Config configures a Service.
type Config struct {
	Fs          afero.Fs       // File system (default: the OS file system)
	Schemas     []types.Schema // Dialect schemas, picked by file extension
	Format      format.Options // Base formatter options
	SortKeys    bool           // Apply the schema's key order when formatting
	Extensions  []string       // Extensions picked up by workspace scans and watches
	SearchPaths []string       // Roots for loose game files
	Archives    []string       // _dir.vpk files searched after SearchPaths
	Concurrency int            // Parallel parses during scans (default NumCPU)
	Logger      *slog.Logger   // Default: slog.Default()
}

// Document is an opened file.
type Document struct {
	URI     string
	Symbols []*types.Symbol
	// Err is the syntax error, if any; Symbols then holds the partial tree.
	Err error
	// Included lists the files pulled in through #base and #include.
	Included []string
	// IncludeErr joins include cycles and unreadable includes.
	IncludeErr error
}

// Link is a value that names a game file, with the places it was found.
type Link struct {
	Symbol     *types.Symbol
	Candidates []string
	Locations  []types.Location
}
