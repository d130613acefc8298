// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitFormatted stages files (absolute or relative to the work
// directory) and commits them with a formatting message. It returns the
// new commit hash.
func (r *Repo) CommitFormatted(files []string) (string, error) {
	if len(files) == 0 {
		return "", ErrNothingToCommit
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	rel := make([]string, 0, len(files))
	for _, f := range files {
		p, err := r.relative(f)
		if err != nil {
			return "", err
		}
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("staging %s: %w", p, err)
		}
		rel = append(rel, p)
	}

	hash, err := wt.Commit(GenerateMessage(rel), &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  r.cfg.AuthorName,
			Email: r.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Undo reverts the last commit if it was made by vdf fmt. It resets softly
// to the parent, so the formatted content stays in the working tree.
func (r *Repo) Undo() error {
	isFormat, err := r.IsFormatCommit()
	if err != nil {
		return err
	}
	if !isFormat {
		return ErrNotFormatCommit
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("getting commit: %w", err)
	}

	if commit.NumParents() == 0 {
		return fmt.Errorf("cannot undo: HEAD is the initial commit")
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("getting parent commit: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	err = wt.Reset(&gogit.ResetOptions{
		Commit: parent.Hash,
		Mode:   gogit.SoftReset,
	})
	if err != nil {
		return fmt.Errorf("resetting to parent: %w", err)
	}

	return nil
}

func (r *Repo) relative(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	rel, err := filepath.Rel(r.cfg.WorkDir, p)
	if err != nil {
		return "", fmt.Errorf("%s is outside the work tree: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}
