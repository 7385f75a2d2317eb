// Package prompt assembles the final prompt text from direct input
// and/or a prompt file.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

// Placeholder marks where a prompt file splices in the direct prompt.
const Placeholder = "{{PROMPT}}"

// Resolve produces the final prompt. With no file, the direct prompt
// is used as given. With a file, its contents are read and normalized;
// if they contain Placeholder it is replaced with the direct prompt,
// otherwise the contents stand alone and the direct prompt is ignored.
//
// An unreadable file is fatal to the invocation, never treated as "no
// prompt".
func Resolve(direct, file string) (string, error) {
	if file == "" {
		return direct, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}

	contents := normalize(string(data))
	if strings.Contains(contents, Placeholder) {
		return strings.ReplaceAll(contents, Placeholder, direct), nil
	}
	return contents, nil
}

// normalize strips at most one trailing line terminator: a final "\n",
// plus the "\r" immediately before it if present. Anything mid-content
// is left alone, as is a lone trailing "\r".
func normalize(s string) string {
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
		if strings.HasSuffix(s, "\r") {
			s = s[:len(s)-1]
		}
	}
	return s
}
