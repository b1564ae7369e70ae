package markdown

import (
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// EnsureLink makes the file at path carry a "JIRA: <url>" line. An existing
// JIRA: line is rewritten in place; otherwise the line goes right after the
// Key: line, or after the title. Files that already contain url anywhere are
// left untouched. It reports whether the file was rewritten.
func EnsureLink(path, url string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	patched, changed := InsertLink(string(content), url)
	if !changed {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(patched)); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	// atomic.WriteFile creates a fresh file; carry the original mode over.
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return true, fmt.Errorf("chmod %s: %w", path, err)
	}
	return true, nil
}

// InsertLink is the pure half of EnsureLink.
func InsertLink(content, url string) (string, bool) {
	if containsURL(content, url) {
		return content, false
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}
	link := "JIRA: " + url
	lines := splitLines(content)

	for i, line := range lines {
		if jiraLineRe.MatchString(line) {
			lines[i] = link
			return strings.Join(lines, newline), true
		}
	}

	at := 1
	for i, line := range lines {
		if keyLineRe.MatchString(line) {
			at = i + 1
			break
		}
	}
	if at > len(lines) {
		at = len(lines)
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, link)
	out = append(out, lines[at:]...)
	return strings.Join(out, newline), true
}

// containsURL reports whether url occurs in content as a whole token, so
// .../BOOK-1 is not mistaken for .../BOOK-12.
func containsURL(content, url string) bool {
	for offset := 0; ; {
		idx := strings.Index(content[offset:], url)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(url)
		if end == len(content) || !isKeyChar(content[end]) {
			return true
		}
		offset = end
	}
}

func isKeyChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '-' || c == '_'
}
