// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package vpk reads Valve VPK archives: a "_dir" index file plus numbered
// data parts.
package vpk

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	headerSize = 28
	recordSize = 18
	terminator = 0xFFFF

	// DirArchiveIndex marks entries whose bytes live in the _dir file itself.
	DirArchiveIndex = 0xFF

	rootFolder  = " "
	noExtension = " "
)

// Entry locates one file's bytes.
type Entry struct {
	CRC          uint32
	ArchiveIndex uint8
	Offset       uint32 // Byte offset inside the part file
	Length       uint32 // Bytes stored in the part file
	Preload      []byte // Bytes stored inline in the directory, served first
}

// Size is the full length of the file contents.
func (e *Entry) Size() int64 {
	return int64(len(e.Preload)) + int64(e.Length)
}

// Node is either a directory (Entry == nil) or a file.
type Node struct {
	Children map[string]*Node
	Entry    *Entry
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Entry == nil
}

func newDir() *Node {
	return &Node{Children: make(map[string]*Node)}
}

// Tree is the decoded directory of an archive. It is not modified after
// Parse returns.
type Tree struct {
	Root *Node
}

// reader decodes little-endian fields and reports truncation as
// *FormatError.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int, what string) error {
	if r.pos+n > len(r.data) {
		return &FormatError{Offset: r.pos, Message: "truncated " + what}
	}
	return nil
}

func (r *reader) cstring() (string, error) {
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		return "", &FormatError{Offset: r.pos, Message: "unterminated string"}
	}
	s := string(r.data[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// Parse decodes the directory table of a _dir file. The table starts at
// byte 28 and is grouped extension → folder → file name, each level closed
// by an empty string.
func Parse(data []byte) (*Tree, error) {
	if len(data) < headerSize {
		return nil, &FormatError{Offset: len(data), Message: "truncated header"}
	}
	r := &reader{data: data, pos: headerSize}
	root := newDir()

	for {
		ext, err := r.cstring()
		if err != nil {
			return nil, err
		}
		if ext == "" {
			break
		}
		for {
			folder, err := r.cstring()
			if err != nil {
				return nil, err
			}
			if folder == "" {
				break
			}
			for {
				name, err := r.cstring()
				if err != nil {
					return nil, err
				}
				if name == "" {
					break
				}
				entry, err := r.record()
				if err != nil {
					return nil, err
				}
				if ext != noExtension {
					name += "." + ext
				}
				if err := insert(root, folder, name, entry, r.pos); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Tree{Root: root}, nil
}

// record reads the fixed 18-byte entry and any preload bytes after it.
func (r *reader) record() (*Entry, error) {
	start := r.pos
	if err := r.need(recordSize, "entry record"); err != nil {
		return nil, err
	}
	e := &Entry{CRC: r.u32()}
	preload := int(r.u16())
	e.ArchiveIndex = r.data[r.pos]
	r.pos += 2 // index byte + padding
	e.Offset = r.u32()
	e.Length = r.u32()
	if term := r.u16(); term != terminator {
		return nil, &FormatError{Offset: start, Message: "bad entry terminator (corrupt or unsupported version)"}
	}
	if preload > 0 {
		if err := r.need(preload, "preload data"); err != nil {
			return nil, err
		}
		e.Preload = append([]byte(nil), r.data[r.pos:r.pos+preload]...)
		r.pos += preload
	}
	return e, nil
}

func splitPath(p string) []string {
	p = strings.ReplaceAll(p, `\`, "/")
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" && seg != "." {
			out = append(out, seg)
		}
	}
	return out
}

func insert(root *Node, folder, name string, e *Entry, offset int) error {
	dir := root
	if folder != rootFolder {
		for _, seg := range splitPath(folder) {
			next, ok := dir.Children[seg]
			if !ok {
				next = newDir()
				dir.Children[seg] = next
			}
			if !next.IsDir() {
				return &FormatError{Offset: offset, Message: "folder " + folder + " collides with a file"}
			}
			dir = next
		}
	}
	if existing, ok := dir.Children[name]; ok && existing.IsDir() {
		return &FormatError{Offset: offset, Message: "file " + name + " collides with a folder"}
	}
	dir.Children[name] = &Node{Entry: e}
	return nil
}
