package markdown

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	lineSplitRe   = regexp.MustCompile(`\r?\n`)
	epicTitleRe   = regexp.MustCompile(`(?i)^#\s*EPIC:`)
	storyTitleRe  = regexp.MustCompile(`(?i)^#\s*USER STORY:`)
	headingMarkRe = regexp.MustCompile(`^#+\s*`)
	keyLineRe     = regexp.MustCompile(`(?i)^Key:\s*(.*)$`)
	jiraLineRe    = regexp.MustCompile(`(?i)^JIRA:\s*`)
	jiraURLLineRe = regexp.MustCompile(`(?i)^JIRA:\s*https?://`)
	browseKeyRe   = regexp.MustCompile(`browse/([A-Z0-9]+-[0-9]+)`)
)

// ParseFile reads path and parses it. Read failures come back as *ParseError.
func ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(path, string(content)), nil
}

// Parse builds a Document from raw file content. It never fails: missing
// pieces leave the corresponding fields empty.
func Parse(path, content string) *Document {
	lines := splitLines(content)
	firstLine := strings.TrimPrefix(lines[0], "\ufeff")

	doc := &Document{
		Path:    path,
		Kind:    DetectKind(path, firstLine),
		Summary: summaryFromTitle(firstLine),
		Body:    StripLinkLine(content),
	}

	for _, line := range lines {
		if doc.InternalKey == "" {
			if m := keyLineRe.FindStringSubmatch(line); m != nil {
				doc.InternalKey = strings.TrimSpace(m[1])
			}
		}
		if doc.RemoteKey == "" {
			doc.RemoteKey = RemoteKeyFromLine(line)
		}
	}

	return doc
}

// DetectKind classifies a document. The directory segment wins; the title
// keyword is the fallback; anything else is a task.
func DetectKind(path, firstLine string) Kind {
	p := "/" + filepath.ToSlash(path)
	switch {
	case strings.Contains(p, "/epics/"):
		return KindEpic
	case strings.Contains(p, "/user-stories/"):
		return KindStory
	case strings.Contains(p, "/tasks/"):
		return KindTask
	}

	switch {
	case epicTitleRe.MatchString(firstLine):
		return KindEpic
	case storyTitleRe.MatchString(firstLine):
		return KindStory
	}
	return KindTask
}

// RemoteKeyFromLine extracts the issue key from a "JIRA: <url>" line. Lines
// that do not start with JIRA: followed by an http(s) URL containing
// browse/<KEY> yield "".
func RemoteKeyFromLine(line string) string {
	if !jiraURLLineRe.MatchString(line) {
		return ""
	}
	m := browseKeyRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripLinkLine removes every JIRA: line from content.
func StripLinkLine(content string) string {
	lines := splitLines(content)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if jiraLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func summaryFromTitle(firstLine string) string {
	summary := strings.TrimSpace(headingMarkRe.ReplaceAllString(strings.TrimSpace(firstLine), ""))
	if idx := strings.Index(summary, ":"); idx >= 0 {
		summary = strings.TrimSpace(summary[idx+1:])
	}
	return summary
}

func splitLines(content string) []string {
	return lineSplitRe.Split(content, -1)
}
