// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ValidRepo(t *testing.T) {
	dir := initTestRepo(t)

	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "vdf", repo.cfg.AuthorName)
}

func TestOpen_NotARepo(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(Config{WorkDir: dir})
	assert.ErrorIs(t, err, ErrNoGit)
}

func TestIsDirty_CleanRepo(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestIsDirty_WithUnstagedChanges(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.vdf"), []byte("items\n{\n\tmodified 1\n}\n"), 0o644))

	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestChangedFiles(t *testing.T) {
	dir := initTestRepo(t)
	addFileAndCommit(t, dir, "scripts/gone.res", "a b\n", "add gone")
	repo, err := Open(Config{WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.vdf"), []byte("items\n{\n}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pop"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pop", "new.pop"), []byte("WaveSchedule\n{\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "scripts", "gone.res")))

	got, err := repo.ChangedFiles([]string{".vdf", ".pop", ".res"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "items.vdf"),
		filepath.Join(dir, "pop", "new.pop"),
	}, got)

	all, err := repo.ChangedFiles(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIsFormatCommit(t *testing.T) {
	t.Run("format commit", func(t *testing.T) {
		dir := initTestRepo(t)
		addFileAndCommit(t, dir, "a.vdf", "a b\n", GenerateMessage([]string{"a.vdf"}))

		repo, err := Open(Config{WorkDir: dir})
		require.NoError(t, err)

		ok, err := repo.IsFormatCommit()
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("other commit", func(t *testing.T) {
		dir := initTestRepo(t)
		repo, err := Open(Config{WorkDir: dir})
		require.NoError(t, err)

		ok, err := repo.IsFormatCommit()
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGenerateMessage(t *testing.T) {
	tests := []struct {
		name        string
		files       []string
		wantSubject string
		wantBody    bool
	}{
		{name: "no files", files: nil, wantSubject: "style: format KeyValues files"},
		{name: "one file", files: []string{"scripts/items_game.txt"}, wantSubject: "style: format scripts/items_game.txt"},
		{name: "several files", files: []string{"a.vdf", "b.pop"}, wantSubject: "style: format 2 KeyValues files", wantBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := GenerateMessage(tt.files)
			assert.Equal(t, tt.wantSubject, firstLineOf(msg))
			assert.True(t, strings.HasSuffix(msg, formatTrailer))
			assert.Equal(t, tt.wantBody, strings.Contains(msg, "Formatted files:"))
		})
	}
}

func TestGenerateMessage_LongPathTruncated(t *testing.T) {
	long := "resource/ui/" + strings.Repeat("nested/", 20) + "hud.res"
	subject := firstLineOf(GenerateMessage([]string{long}))
	assert.Len(t, subject, maxSubjectLength)
	assert.True(t, strings.HasSuffix(subject, "..."))
}

// initTestRepo creates a temp dir with a git repo, an initial commit, and
// returns the directory path.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	r, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := r.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.vdf"), []byte("items\n{\n}\n"), 0o644))

	_, err = wt.Add("items.vdf")
	require.NoError(t, err)

	_, err = wt.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@test.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}

// addFileAndCommit adds a file and creates a commit with the given message.
func addFileAndCommit(t *testing.T, dir, name, content, msg string) {
	t.Helper()

	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)

	wt, err := r.Worktree()
	require.NoError(t, err)

	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	_, err = wt.Add(name)
	require.NoError(t, err)

	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@test.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
}

// lastCommitMessage returns the message of the HEAD commit.
func lastCommitMessage(t *testing.T, dir string) string {
	t.Helper()
	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	head, err := r.Head()
	require.NoError(t, err)
	commit, err := r.CommitObject(head.Hash())
	require.NoError(t, err)
	return commit.Message
}

// commitCount returns the number of commits reachable from HEAD.
func commitCount(t *testing.T, dir string) int {
	t.Helper()
	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	iter, err := r.Log(&gogit.LogOptions{})
	require.NoError(t, err)
	count := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	}))
	return count
}

func firstLineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
