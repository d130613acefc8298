// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads tool configuration from flags, VDF_* environment
// variables and an optional .vdf-tools.yaml file, and carries the built-in
// dialect schemas.
package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/petar-djukic/keyvalues/internal/format"
	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

//go:embed schemas/*.yaml
var schemaFiles embed.FS

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Format holds the formatter settings.
type Format struct {
	Indentation string `mapstructure:"indentation" yaml:"indentation"` // tabs or spaces
	TabSize     int    `mapstructure:"tabSize" yaml:"tabSize"`
	Newline     string `mapstructure:"newline" yaml:"newline"` // lf or crlf
	SortKeys    bool   `mapstructure:"sortKeys" yaml:"sortKeys"`
}

// Config is the decoded configuration.
type Config struct {
	WorkDir     string         `mapstructure:"workdir"`
	Format      Format         `mapstructure:"format"`
	Extensions  []string       `mapstructure:"extensions"`
	SearchPaths []string       `mapstructure:"searchPaths"`
	Archives    []string       `mapstructure:"archives"`
	Concurrency int            `mapstructure:"concurrency"`
	LogLevel    string         `mapstructure:"logLevel"`
	Schemas     []types.Schema `mapstructure:"schemas"`
}

// NewViper returns a viper instance with defaults, the VDF environment
// prefix and, when present, the config file. An empty configFile looks for
// .vdf-tools.yaml in the current directory.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("workdir", ".")
	v.SetDefault("format.indentation", "tabs")
	v.SetDefault("format.tabSize", 4)
	v.SetDefault("format.newline", "lf")
	v.SetDefault("format.sortKeys", false)
	v.SetDefault("extensions", []string{".vdf", ".pop", ".vmt", ".res", ".txt"})
	v.SetDefault("searchPaths", []string{})
	v.SetDefault("archives", []string{})
	v.SetDefault("concurrency", 0)
	v.SetDefault("logLevel", "warn")

	// Env vars: VDF_WORKDIR, VDF_FORMAT_TABSIZE, etc.
	v.SetEnvPrefix("VDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName(".vdf-tools")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config, merges configured schemas over the
// built-in ones and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	defaults, err := DefaultSchemas()
	if err != nil {
		return Config{}, err
	}
	cfg.Schemas = MergeSchemas(defaults, cfg.Schemas)

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("workdir is required")
	}
	if _, err := format.ParseIndentation(c.Format.Indentation); err != nil {
		return err
	}
	if _, err := format.ParseNewline(c.Format.Newline); err != nil {
		return err
	}
	if c.Format.TabSize < 0 {
		return fmt.Errorf("format.tabSize must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, s := range c.Schemas {
		if s.Name == "" {
			return fmt.Errorf("schema without a name")
		}
	}
	return nil
}

// DefaultSchemas decodes the built-in popfile, vmt and hud schemas, sorted
// by name.
func DefaultSchemas() ([]types.Schema, error) {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schemas: %w", err)
	}
	var out []types.Schema
	for _, e := range entries {
		data, err := schemaFiles.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading embedded schema %s: %w", e.Name(), err)
		}
		var s types.Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding embedded schema %s: %w", e.Name(), err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MergeSchemas returns base with each of overrides replacing the schema of
// the same name, or appended when the name is new.
func MergeSchemas(base, overrides []types.Schema) []types.Schema {
	out := append([]types.Schema(nil), base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, o.Name) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

// SchemaFor returns the first schema that claims the extension of p. Files
// no schema claims get an empty schema named "keyvalues".
func SchemaFor(schemas []types.Schema, p string) types.Schema {
	ext := filepath.Ext(p)
	for _, s := range schemas {
		for _, e := range s.Extensions {
			if strings.EqualFold(e, ext) {
				return s
			}
		}
	}
	return types.Schema{Name: "keyvalues"}
}

// ParserOptions returns the parser options for p.
func (c Config) ParserOptions(p string) parser.Options {
	return parser.Options{Multiline: SchemaFor(c.Schemas, p).Multiline}
}

// FormatOptions returns the formatter options for p. Key order comes from
// the file's schema when sorting is enabled.
func (c Config) FormatOptions(p string) (format.Options, error) {
	ind, err := format.ParseIndentation(c.Format.Indentation)
	if err != nil {
		return format.Options{}, err
	}
	nl, err := format.ParseNewline(c.Format.Newline)
	if err != nil {
		return format.Options{}, err
	}
	opts := format.Options{Indentation: ind, TabSize: c.Format.TabSize, Newline: nl}
	if c.Format.SortKeys {
		opts.KeyOrder = SchemaFor(c.Schemas, p).KeyOrder
	}
	return opts, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
