// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/petar-djukic/keyvalues/internal/format"
	gitpkg "github.com/petar-djukic/keyvalues/internal/git"
	"github.com/petar-djukic/keyvalues/internal/index"
)

var (
	errNotFormatted = errors.New("some files are not formatted")
	errFmtFailed    = errors.New("some files could not be formatted")
)

// newFmtCmd creates the "fmt" command.
func newFmtCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt [paths...]",
		Short: "Format KeyValues files",
		Long: "Fmt re-emits KeyValues files with aligned values. Without flags the formatted text is printed; " +
			"directories are walked for known extensions. Files with syntax errors are reported and left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFmt(cmd, args)
		},
	}

	cmd.Flags().BoolP("write", "w", false, "Write results back to the files")
	cmd.Flags().Bool("check", false, "List files whose formatting differs and fail if any")
	cmd.Flags().BoolP("diff", "d", false, "Print a diff instead of the formatted text")
	cmd.Flags().Bool("changed", false, "Format the files git reports as changed under --workdir")
	cmd.Flags().Bool("commit", false, "Write and commit the formatted files")
	cmd.Flags().Bool("undo", false, "Revert the last formatting commit")
	cmd.Flags().String("indent", "tabs", "Indentation: tabs or spaces")
	cmd.Flags().Int("tab-size", 4, "Tab stop width used for alignment")
	cmd.Flags().String("newline", "lf", "Line ending: lf or crlf")
	cmd.Flags().Bool("sort-keys", false, "Order keys by the schema's key order")

	return cmd
}

func (a *app) runFmt(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	check, _ := cmd.Flags().GetBool("check")
	diff, _ := cmd.Flags().GetBool("diff")
	changed, _ := cmd.Flags().GetBool("changed")
	commit, _ := cmd.Flags().GetBool("commit")
	undo, _ := cmd.Flags().GetBool("undo")
	out := cmd.OutOrStdout()

	if undo {
		repo, err := gitpkg.Open(gitpkg.Config{WorkDir: a.cfg.WorkDir})
		if err != nil {
			return fmt.Errorf("opening repository: %w", err)
		}
		if err := repo.Undo(); err != nil {
			return fmt.Errorf("undo failed: %w", err)
		}
		fmt.Fprintln(out, "Reverted the last formatting commit.")
		return nil
	}

	svc, err := a.service(cmd)
	if err != nil {
		return err
	}

	var repo *gitpkg.Repo
	if changed || commit {
		repo, err = gitpkg.Open(gitpkg.Config{WorkDir: a.cfg.WorkDir})
		if err != nil {
			return fmt.Errorf("opening repository: %w", err)
		}
	}

	var files []string
	if changed {
		files, err = repo.ChangedFiles(a.cfg.Extensions)
	} else {
		if len(args) == 0 {
			args = []string{a.cfg.WorkDir}
		}
		files, err = collectFiles(a.fs, args, a.cfg.Extensions)
	}
	if err != nil {
		return err
	}

	var written []string
	var failed, unformatted bool
	for _, f := range files {
		if (write || commit) && !check && !diff {
			ok, err := svc.FormatFile(f)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
				failed = true
				continue
			}
			if ok {
				fmt.Fprintln(out, f)
				written = append(written, f)
			}
			continue
		}

		data, err := afero.ReadFile(a.fs, f)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			failed = true
			continue
		}
		formatted, err := svc.Format(f, string(data))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f, err)
			failed = true
			continue
		}

		switch {
		case check:
			if formatted != string(data) {
				fmt.Fprintln(out, f)
				unformatted = true
			}
		case diff:
			if d := format.Diff(string(data), formatted); d != "" {
				fmt.Fprintf(out, "--- %s\n+++ %s\n%s", f, f, d)
			}
		default:
			fmt.Fprint(out, formatted)
		}
	}

	if commit && len(written) > 0 {
		hash, err := repo.CommitFormatted(written)
		if err != nil {
			return fmt.Errorf("committing: %w", err)
		}
		fmt.Fprintf(out, "Committed %d files as %s\n", len(written), hash[:min(len(hash), 12)])
	}

	switch {
	case failed:
		return errFmtFailed
	case unformatted:
		return errNotFormatted
	}
	return nil
}

// collectFiles expands directories in paths into the files below them
// with one of exts. Named files are kept whatever their extension.
func collectFiles(fsys afero.Fs, paths []string, exts []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := fsys.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = afero.Walk(fsys, p, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if path != p && (info.Name() == ".git" || info.Name() == "vendor" || info.Name() == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}
			if index.HasExtension(path, exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return files, nil
}
