// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package vpk

import (
	"errors"
	"fmt"
)

// Lookup errors. Stat, ReadDir and ReadFile wrap them in *fs.PathError.
var (
	ErrNotFound      = errors.New("entry not found")
	ErrNotADirectory = errors.New("not a directory")
	ErrIsADirectory  = errors.New("is a directory")
)

// FormatError reports a directory file that cannot be decoded: a truncated
// header or table, or a record whose terminator is not 0xFFFF.
type FormatError struct {
	Offset  int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("vpk: offset %d: %s", e.Offset, e.Message)
}
