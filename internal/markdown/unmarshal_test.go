package markdown

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseEpicFromDirectory(t *testing.T) {
	doc := Parse("/repo/.jira/epics/launch.md", "# EPIC: Launch\nKey: EP-1\n\nBody text\n")

	if doc.Kind != KindEpic {
		t.Fatalf("Kind = %q, want Epic", doc.Kind)
	}
	if doc.Summary != "Launch" {
		t.Fatalf("Summary = %q, want Launch", doc.Summary)
	}
	if doc.InternalKey != "EP-1" {
		t.Fatalf("InternalKey = %q", doc.InternalKey)
	}
	if doc.Linked() {
		t.Fatalf("unexpected remote key %q", doc.RemoteKey)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		firstLine string
		want      Kind
	}{
		{"epic dir", "/r/epics/a.md", "# Something", KindEpic},
		{"story dir", "/r/user-stories/a.md", "# EPIC: but dir wins", KindStory},
		{"task dir", "/r/tasks/a.md", "# USER STORY: dir wins", KindTask},
		{"relative epic dir", "epics/a.md", "", KindEpic},
		{"epic heading", "/r/misc/a.md", "# EPIC: Launch", KindEpic},
		{"epic heading lower", "/r/misc/a.md", "#epic: Launch", KindEpic},
		{"story heading", "/r/misc/a.md", "# USER STORY: Book a table", KindStory},
		{"default task", "/r/misc/a.md", "# Fix the flaky test", KindTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.path, tt.firstLine); got != tt.want {
				t.Fatalf("DetectKind(%q, %q) = %q, want %q", tt.path, tt.firstLine, got, tt.want)
			}
		})
	}
}

func TestSummaryExtraction(t *testing.T) {
	tests := []struct {
		first string
		want  string
	}{
		{"# EPIC: Launch", "Launch"},
		{"# USER STORY: As a guest: I book", "As a guest: I book"},
		{"Plain title without colon", "Plain title without colon"},
		{"   ## Spaced heading  ", "Spaced heading"},
		{"", ""},
		{"#", ""},
	}
	for _, tt := range tests {
		doc := Parse("/r/tasks/x.md", tt.first+"\nrest")
		if doc.Summary != tt.want {
			t.Errorf("summary of %q = %q, want %q", tt.first, doc.Summary, tt.want)
		}
	}
}

func TestRemoteKeyFromLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"JIRA: https://example.atlassian.net/browse/KEY-123", "KEY-123"},
		{"JIRA: http://jira.local/browse/BOOK-9?focused=1", "BOOK-9"},
		{"jira:   https://x/browse/A1-2 trailing words", "A1-2"},
		{"JIRA: https://x/browse/lower-1", ""},
		{"JIRA: KEY-123", ""},
		{"JIRA: ftp://x/browse/KEY-1", ""},
		{"See JIRA: https://x/browse/KEY-1", ""},
		{"JIRA: https://x/projects/KEY", ""},
	}
	for _, tt := range tests {
		if got := RemoteKeyFromLine(tt.line); got != tt.want {
			t.Errorf("RemoteKeyFromLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParseRemoteKeyAnywhere(t *testing.T) {
	content := "# Task: Wire sockets\n\nSome text\nJIRA: https://example.atlassian.net/browse/BOOK-42\nmore\n"
	doc := Parse("/r/tasks/sockets.md", content)
	if doc.RemoteKey != "BOOK-42" {
		t.Fatalf("RemoteKey = %q, want BOOK-42", doc.RemoteKey)
	}
	if want := "# Task: Wire sockets\n\nSome text\nmore\n"; doc.Body != want {
		t.Fatalf("Body = %q, want %q", doc.Body, want)
	}
}

func TestParseCRLF(t *testing.T) {
	doc := Parse("/r/user-stories/s.md", "# USER STORY: Booking\r\nKey: US-3\r\nJIRA: https://x/browse/BOOK-5\r\n")
	if doc.Summary != "Booking" || doc.InternalKey != "US-3" || doc.RemoteKey != "BOOK-5" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestParseFileReadError(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "epics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "launch.md")
	if err := os.WriteFile(path, []byte("# EPIC: Launch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if doc.Path != path || doc.Kind != KindEpic || doc.Summary != "Launch" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}
