// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package format

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff between before and after: removed lines start
// with "-", added lines with "+", and each hunk opens with an
// "@@ line N @@" header naming its first line in before. Unchanged lines
// are omitted. Equal inputs yield "".
func Diff(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	line := 1
	inHunk := false
	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			line += len(chunk)
			inHunk = false
		case diffmatchpatch.DiffDelete:
			if !inHunk {
				fmt.Fprintf(&out, "@@ line %d @@\n", line)
				inHunk = true
			}
			for _, l := range chunk {
				out.WriteString("-" + l + "\n")
			}
			line += len(chunk)
		case diffmatchpatch.DiffInsert:
			if !inHunk {
				fmt.Fprintf(&out, "@@ line %d @@\n", line)
				inHunk = true
			}
			for _, l := range chunk {
				out.WriteString("+" + l + "\n")
			}
		}
	}
	return out.String()
}

// splitLines splits s into lines without their terminators. A trailing
// newline does not produce an empty final line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
