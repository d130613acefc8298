// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package vpk

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileInfo describes an entry returned by Stat.
type FileInfo struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

// DirEntry is one child returned by ReadDir.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

// Archive is an opened VPK. Its tree is read-only, so an Archive may be
// shared between goroutines; every ReadFile opens its own part handle.
type Archive struct {
	fs   afero.Fs
	path string
	tree *Tree
}

// Open reads and decodes the _dir file at dirPath.
func Open(fsys afero.Fs, dirPath string) (*Archive, error) {
	data, err := afero.ReadFile(fsys, dirPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dirPath, err)
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", dirPath, err)
	}
	return &Archive{fs: fsys, path: dirPath, tree: tree}, nil
}

// Path returns the location of the _dir file.
func (a *Archive) Path() string {
	return a.path
}

// PartPath returns the file holding the bytes of entries with the given
// archive index: the _dir file itself for DirArchiveIndex, otherwise the
// numbered part next to it (pak01_dir.vpk → pak01_007.vpk).
func (a *Archive) PartPath(index uint8) string {
	if index == DirArchiveIndex {
		return a.path
	}
	base := strings.TrimSuffix(a.path, ".vpk")
	base = strings.TrimSuffix(base, "_dir")
	return fmt.Sprintf("%s_%03d.vpk", base, index)
}

// lookup walks the tree. A missing segment is ErrNotFound; descending
// through a file is ErrNotADirectory. Names match exactly first and then
// case-insensitively, since archives store lower-case paths.
func (a *Archive) lookup(p string) (*Node, error) {
	node := a.tree.Root
	for _, seg := range splitPath(p) {
		if !node.IsDir() {
			return nil, ErrNotADirectory
		}
		next, ok := node.Children[seg]
		if !ok {
			next = childFold(node, seg)
		}
		if next == nil {
			return nil, ErrNotFound
		}
		node = next
	}
	return node, nil
}

func childFold(dir *Node, name string) *Node {
	for k, child := range dir.Children {
		if strings.EqualFold(k, name) {
			return child
		}
	}
	return nil
}

// Stat describes the entry at p. The empty path is the root directory.
func (a *Archive) Stat(p string) (FileInfo, error) {
	node, err := a.lookup(p)
	if err != nil {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: p, Err: err}
	}
	info := FileInfo{Name: path.Base("/" + strings.Join(splitPath(p), "/")), IsDir: node.IsDir()}
	if !node.IsDir() {
		info.Size = node.Entry.Size()
	}
	return info, nil
}

// ReadDir lists the children of the directory at p, sorted by name.
func (a *Archive) ReadDir(p string) ([]DirEntry, error) {
	node, err := a.lookup(p)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: err}
	}
	if !node.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: ErrNotADirectory}
	}
	out := make([]DirEntry, 0, len(node.Children))
	for name, child := range node.Children {
		out = append(out, DirEntry{Name: name, IsDir: child.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Files returns the path of every file in the archive, sorted.
func (a *Archive) Files() []string {
	var out []string
	var walk func(prefix string, n *Node)
	walk = func(prefix string, n *Node) {
		for name, child := range n.Children {
			if child.IsDir() {
				walk(prefix+name+"/", child)
				continue
			}
			out = append(out, prefix+name)
		}
	}
	walk("", a.tree.Root)
	sort.Strings(out)
	return out
}

// ReadFile returns the contents of the file at p: its preload bytes
// followed by Length bytes read from the part file at Offset. Offsets are
// absolute within the part file, the _dir file included.
func (a *Archive) ReadFile(p string) ([]byte, error) {
	node, err := a.lookup(p)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: p, Err: err}
	}
	if node.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: p, Err: ErrIsADirectory}
	}
	e := node.Entry

	out := make([]byte, 0, e.Size())
	out = append(out, e.Preload...)
	if e.Length == 0 {
		return out, nil
	}

	part := a.PartPath(e.ArchiveIndex)
	offset := int64(e.Offset)

	f, err := a.fs.Open(part)
	if err != nil {
		return nil, fmt.Errorf("opening archive part for %s: %w", p, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking %s: %w", part, err)
	}
	buf := make([]byte, e.Length)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", p, part, err)
	}
	return append(out, buf...), nil
}
