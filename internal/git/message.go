// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"strings"
)

const maxSubjectLength = 72

// GenerateMessage creates the commit message for a formatting pass over
// files.
func GenerateMessage(files []string) string {
	msg := buildSubject(files)
	if body := buildBody(files); body != "" {
		msg += "\n\n" + body
	}
	return msg + "\n" + formatTrailer
}

// buildSubject creates the first line of the commit message.
// Format: "style: format <what>" (max 72 chars).
func buildSubject(files []string) string {
	var subject string
	switch len(files) {
	case 0:
		subject = "style: format KeyValues files"
	case 1:
		subject = "style: format " + files[0]
	default:
		subject = fmt.Sprintf("style: format %d KeyValues files", len(files))
	}
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength-3] + "..."
	}
	return subject
}

// buildBody lists the formatted files.
func buildBody(files []string) string {
	if len(files) < 2 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("Formatted files:\n")
	for _, f := range files {
		buf.WriteString(fmt.Sprintf("- %s\n", f))
	}
	return buf.String()
}
