// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/petar-djukic/keyvalues/internal/index"
	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/pkg/types"
	"github.com/petar-djukic/keyvalues/pkg/vdf"
)

// newParseCmd creates the "parse" command.
func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the symbol tree of a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(a.fs, args[0])
			if err != nil {
				return err
			}
			symbols, perr := parser.Parse(string(data), parser.Options{Multiline: svc.Schema(args[0]).Multiline})
			if err := printJSON(cmd.OutOrStdout(), symbols); err != nil {
				return err
			}
			return perr
		},
	}
}

// newDefsCmd creates the "defs" command.
func newDefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defs KIND [NAME]",
		Short: "List definitions found in the workspace",
		Long:  "Defs scans --workdir and lists the definitions of KIND, or only those named NAME.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.scan(cmd)
			if err != nil {
				return err
			}
			var defs []types.Definition
			if len(args) == 2 {
				defs = svc.Definitions(args[1], args[0])
			} else {
				defs = svc.AllDefinitions(args[0])
			}
			return printEntries(cmd, defs, func(d types.Definition) (string, string, types.Range) {
				return d.URI, d.Name, d.Range
			})
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

// newRefsCmd creates the "refs" command.
func newRefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs KIND NAME",
		Short: "List references found in the workspace",
		Long: "Refs scans --workdir and lists the references to NAME of KIND. " +
			"With --watch it keeps running and prints the list again whenever a file changes.",
		Args: func(cmd *cobra.Command, args []string) error {
			if unresolved, _ := cmd.Flags().GetBool("unresolved"); unresolved {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.scan(cmd)
			if err != nil {
				return err
			}

			list := func() error {
				if unresolved, _ := cmd.Flags().GetBool("unresolved"); unresolved {
					return printRefs(cmd, svc.Unresolved())
				}
				return printRefs(cmd, svc.References(args[1], args[0]))
			}
			if err := list(); err != nil {
				return err
			}

			if watch, _ := cmd.Flags().GetBool("watch"); !watch {
				return nil
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			h := &relister{svc: svc, list: list, errOut: cmd.ErrOrStderr()}
			return index.Watch(ctx, a.cfg.WorkDir, a.cfg.Extensions, h, a.cfg.Logger(cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().Bool("watch", false, "Re-index and print again when files change")
	cmd.Flags().Bool("unresolved", false, "List references with no matching definition")
	return cmd
}

// relister re-indexes changed files and prints the list again.
type relister struct {
	mu     sync.Mutex
	svc    *vdf.Service
	list   func() error
	errOut io.Writer
}

func (r *relister) Changed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.svc.Changed(path)
	r.relist()
}

func (r *relister) Removed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.svc.Removed(path)
	r.relist()
}

func (r *relister) relist() {
	if err := r.list(); err != nil {
		fmt.Fprintf(r.errOut, "%v\n", err)
	}
}

// newLinksCmd creates the "links" command.
func newLinksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "links FILE",
		Short: "List game files a file refers to and where they were found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Shutdown()
			doc, err := svc.OpenFile(args[0])
			if err != nil {
				return err
			}
			links, lerr := svc.Links(doc.URI)
			out := cmd.OutOrStdout()
			for _, l := range links {
				pos := l.Symbol.DetailRange.Start
				fmt.Fprintf(out, "%s:%d:%d\t%s %q\n", doc.URI, pos.Line+1, pos.Character+1, l.Symbol.Key, l.Symbol.Value)
				if len(l.Locations) == 0 {
					fmt.Fprintf(out, "\tnot found (tried %v)\n", l.Candidates)
				}
				for _, loc := range l.Locations {
					if loc.Archive != "" {
						fmt.Fprintf(out, "\t%s in %s\n", loc.Path, loc.Archive)
						continue
					}
					fmt.Fprintf(out, "\t%s\n", loc.Path)
				}
			}
			return lerr
		},
	}
}

// scan builds a Service and indexes the workspace.
func (a *app) scan(cmd *cobra.Command) (*vdf.Service, error) {
	svc, err := a.service(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := svc.Scan(a.cfg.WorkDir); err != nil {
		return nil, err
	}
	return svc, nil
}

func printRefs(cmd *cobra.Command, refs []types.Reference) error {
	return printEntries(cmd, refs, func(r types.Reference) (string, string, types.Range) {
		return r.URI, r.Name, r.Range
	})
}

// printEntries prints one "uri:line:col<TAB>name" line per entry, with
// 1-based positions, or JSON when --json is set.
func printEntries[T any](cmd *cobra.Command, entries []T, fields func(T) (string, string, types.Range)) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if entries == nil {
			entries = []T{}
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}
	for _, e := range entries {
		uri, name, rng := fields(e)
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d\t%s\n", uri, rng.Start.Line+1, rng.Start.Character+1, name)
	}
	return nil
}

// printJSON outputs v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
