package markdown

import "fmt"

// Kind is the work item category a document maps to.
type Kind string

const (
	KindEpic  Kind = "Epic"
	KindStory Kind = "Story"
	KindTask  Kind = "Task"
)

// Document is the structured view of one work item file.
type Document struct {
	Path        string
	Kind        Kind
	Summary     string
	InternalKey string // from a "Key:" line; informational only
	RemoteKey   string // from a "JIRA: .../browse/KEY" line
	Body        string // full content minus the JIRA: line
}

// Linked reports whether the document already points at a remote issue.
func (d *Document) Linked() bool {
	return d.RemoteKey != ""
}

// ParseError is returned when a document cannot be read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
