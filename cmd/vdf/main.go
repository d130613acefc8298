// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command vdf formats, inspects and indexes Valve KeyValues files and reads
// VPK archives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/keyvalues/internal/config"
	"github.com/petar-djukic/keyvalues/pkg/vdf"
)

const version = "0.1.0"

// app carries what every command needs once flags and config are read.
type app struct {
	fs  afero.Fs
	v   *viper.Viper
	cfg config.Config
}

func main() {
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	a := &app{fs: fsys}

	rootCmd := &cobra.Command{
		Use:          "vdf",
		Short:        "Valve KeyValues tooling",
		Long:         "vdf formats KeyValues files (VDF, popfiles, VMT, HUD layouts), finds definitions and references across a workspace, and reads VPK archives.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Global flags.
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./.vdf-tools.yaml)")
	rootCmd.PersistentFlags().String("workdir", ".", "Workspace root directory")
	rootCmd.PersistentFlags().StringSlice("search-path", nil, "Game directory searched for linked files (repeatable)")
	rootCmd.PersistentFlags().StringSlice("archive", nil, "VPK _dir file searched for linked files (repeatable)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Parallel parsers during scans (0 = NumCPU)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newFmtCmd(a))
	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newDefsCmd(a))
	rootCmd.AddCommand(newRefsCmd(a))
	rootCmd.AddCommand(newLinksCmd(a))
	rootCmd.AddCommand(newVPKCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads configuration and binds the global flags over it.
func (a *app) load(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(configFile)
	if err != nil {
		return err
	}

	// Bind flags to viper.
	flags := cmd.Flags()
	v.BindPFlag("workdir", flags.Lookup("workdir"))
	v.BindPFlag("searchPaths", flags.Lookup("search-path"))
	v.BindPFlag("archives", flags.Lookup("archive"))
	v.BindPFlag("concurrency", flags.Lookup("concurrency"))
	v.BindPFlag("logLevel", flags.Lookup("log-level"))
	for flag, key := range map[string]string{
		"indent":    "format.indentation",
		"tab-size":  "format.tabSize",
		"newline":   "format.newline",
		"sort-keys": "format.sortKeys",
	} {
		if f := flags.Lookup(flag); f != nil {
			v.BindPFlag(key, f)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v = v
	a.cfg = cfg
	return nil
}

// service builds a Service from the loaded configuration.
func (a *app) service(cmd *cobra.Command) (*vdf.Service, error) {
	opts, err := a.cfg.FormatOptions("")
	if err != nil {
		return nil, err
	}

	return vdf.New(vdf.Config{
		Fs:          a.fs,
		Schemas:     a.cfg.Schemas,
		Format:      opts,
		SortKeys:    a.cfg.Format.SortKeys,
		Extensions:  a.cfg.Extensions,
		SearchPaths: a.cfg.SearchPaths,
		Archives:    a.cfg.Archives,
		Concurrency: a.cfg.Concurrency,
		Logger:      a.cfg.Logger(cmd.ErrOrStderr()),
	})
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print vdf version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vdf %s\n", version)
		},
	}
}
