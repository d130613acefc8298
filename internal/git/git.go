// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git finds KeyValues files changed in a work tree and records
// formatting passes as commits that can be undone.
package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

const formatTrailer = "Formatted-By: vdf fmt"

// ErrNotFormatCommit is returned when undo targets a commit not made by
// vdf fmt.
var ErrNotFormatCommit = errors.New("not a vdf fmt commit")

// ErrNoGit is returned when the working directory is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// ErrNothingToCommit is returned when a commit is requested for no files.
var ErrNothingToCommit = errors.New("nothing to commit")

// Config configures git integration behavior.
type Config struct {
	WorkDir     string // Repository working directory
	AuthorName  string // Defaults to "vdf"
	AuthorEmail string // Defaults to "vdf@localhost"
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
}

// Open opens an existing git repository at the configured work directory.
// Returns ErrNoGit if the directory is not a git repository.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpen(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "vdf"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "vdf@localhost"
	}
	return &Repo{repo: r, cfg: cfg}, nil
}

// IsDirty returns true if the working tree has uncommitted changes
// (either staged or unstaged).
func (r *Repo) IsDirty() (bool, error) {
	status, err := r.status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// ChangedFiles returns the files with one of exts that are modified, added
// or untracked, as sorted paths under the work directory. Deleted files
// are left out.
func (r *Repo) ChangedFiles(exts []string) ([]string, error) {
	status, err := r.status()
	if err != nil {
		return nil, err
	}

	var out []string
	for name, st := range status {
		if st.Worktree == gogit.Deleted || (st.Staging == gogit.Deleted && st.Worktree != gogit.Untracked) {
			continue
		}
		if st.Worktree == gogit.Unmodified && st.Staging == gogit.Unmodified {
			continue
		}
		if !hasExt(name, exts) {
			continue
		}
		out = append(out, filepath.Join(r.cfg.WorkDir, filepath.FromSlash(name)))
	}
	sort.Strings(out)
	return out, nil
}

// IsFormatCommit checks whether the HEAD commit was made by vdf fmt by
// looking for its trailer.
func (r *Repo) IsFormatCommit() (bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		return false, fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return false, fmt.Errorf("getting commit: %w", err)
	}

	return strings.Contains(commit.Message, formatTrailer), nil
}

func (r *Repo) status() (gogit.Status, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	return status, nil
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
