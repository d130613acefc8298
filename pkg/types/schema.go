// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// Schema is the external description of one KeyValues dialect: which
// files it applies to, which symbols declare or reference names, which
// values point at game files, and the canonical key order.
type Schema struct {
	Name        string           `yaml:"name" mapstructure:"name"`
	Extensions  []string         `yaml:"extensions" mapstructure:"extensions"` // e.g. .pop, with the dot
	Multiline   bool             `yaml:"multiline" mapstructure:"multiline"`
	Definitions []DefinitionRule `yaml:"definitions" mapstructure:"definitions"`
	References  []ReferenceRule  `yaml:"references" mapstructure:"references"`
	Links       []LinkRule       `yaml:"links" mapstructure:"links"`
	KeyOrder    []string         `yaml:"keyOrder" mapstructure:"keyOrder"`
}

// DefinitionRule selects symbols that declare a name.
//
// A symbol matches when the keys of its ancestors equal Parent ("*"
// matches any single key). The name is the symbol's own key, or, when IDKey
// is set, the value of its child pair IDKey.
type DefinitionRule struct {
	Kind            string   `yaml:"kind" mapstructure:"kind"`
	Parent          []string `yaml:"parent" mapstructure:"parent"`
	IDKey           string   `yaml:"idKey" mapstructure:"idKey"`
	RequireChildren bool     `yaml:"requireChildren" mapstructure:"requireChildren"`
}

// ReferenceRule selects pairs whose value names a definition of Kind.
// An empty Parent matches at any depth.
type ReferenceRule struct {
	Kind   string   `yaml:"kind" mapstructure:"kind"`
	Keys   []string `yaml:"keys" mapstructure:"keys"`
	Parent []string `yaml:"parent" mapstructure:"parent"`
}

// LinkRule selects pairs whose value names a game file. Candidates are
// Prefix + value + each of Extensions (or the value as written when the
// value already carries one of them).
type LinkRule struct {
	Keys       []string `yaml:"keys" mapstructure:"keys"`
	Prefix     string   `yaml:"prefix" mapstructure:"prefix"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
}
