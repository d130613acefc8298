// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// Definition records a symbol that declares a name of a given kind,
// for example a Popfile template or a named WaveSpawn.
type Definition struct {
	Kind   string  `json:"kind"`
	Name   string  `json:"name"` // Case-folded
	Symbol *Symbol `json:"-"`
	URI    string  `json:"uri"`
	Range  Range   `json:"range"`
}

// Reference records a value that names a definition of a given kind.
type Reference struct {
	Kind   string  `json:"kind"`
	Name   string  `json:"name"` // Case-folded
	Symbol *Symbol `json:"-"`
	URI    string  `json:"uri"`
	Range  Range   `json:"range"`
}

// Location is a resolved file: a path on disk when Archive is empty,
// otherwise a path inside the named VPK directory file.
type Location struct {
	Path    string `json:"path"`
	Archive string `json:"archive,omitempty"`
}
