// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitFormatted_StagesAndCommits(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.vdf"), []byte("items\n{\n\t\"a\"\t\t\"1\"\n}\n"), 0o644))

	hash, err := repo.CommitFormatted([]string{filepath.Join(dir, "items.vdf")})
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	assert.Equal(t, 2, commitCount(t, dir))
	assert.Equal(t, GenerateMessage([]string{"items.vdf"}), lastCommitMessage(t, dir))

	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestCommitFormatted_OnlyStagesGivenFiles(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pop"), []byte("a b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.pop"), []byte("c d\n"), 0o644))

	_, err = repo.CommitFormatted([]string{"a.pop"})
	require.NoError(t, err)

	changed, err := repo.ChangedFiles(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "other.pop")}, changed)
}

func TestCommitFormatted_NoFiles(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	_, err = repo.CommitFormatted(nil)
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestUndo_RevertsFormatCommit(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	formatted := "items\n{\n\t\"a\"\t\t\"1\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.vdf"), []byte(formatted), 0o644))
	_, err = repo.CommitFormatted([]string{"items.vdf"})
	require.NoError(t, err)

	require.NoError(t, repo.Undo())
	assert.Equal(t, 1, commitCount(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "items.vdf"))
	require.NoError(t, err)
	assert.Equal(t, formatted, string(data))
}

func TestUndo_RefusesOtherCommit(t *testing.T) {
	dir := initTestRepo(t)
	addFileAndCommit(t, dir, "b.vdf", "b c\n", "feat: add b")
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Undo(), ErrNotFormatCommit)
	assert.Equal(t, 2, commitCount(t, dir))
}
