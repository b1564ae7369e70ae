// Package syncer reconciles one markdown document with its JIRA issue.
//
// A document is in one of three states: unlinked (no JIRA: line), linked to
// an issue that exists, or linked to an issue that no longer exists. The
// engine creates, updates or recreates the issue accordingly and writes the
// browse URL back into the file after every create.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dt-pm-tools/jira-sync/internal/catalog"
	"github.com/dt-pm-tools/jira-sync/internal/jira"
	"github.com/dt-pm-tools/jira-sync/internal/journal"
	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/dt-pm-tools/jira-sync/internal/markdown"
)

// Tracker is the subset of the JIRA client the engine calls.
type Tracker interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	CreateIssue(ctx context.Context, fields jira.FieldSet) (*jira.CreatedIssue, error)
	UpdateIssue(ctx context.Context, key string, fields jira.FieldSet) error
	BrowseURL(key string) string
}

// Resolver answers project-specific naming questions. *catalog.Catalog
// implements it.
type Resolver interface {
	Validate(ctx context.Context) error
	IssueTypeName(kind markdown.Kind) string
	EpicField(ctx context.Context) string
}

// Recorder persists outcomes. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options configures an Engine.
type Options struct {
	Project     string
	SkipUpdates bool
	Renderer    markdown.Renderer // defaults to ADFRenderer
	Recorder    Recorder          // optional
	RunID       string            // defaults to a fresh UUID
	Logger      *slog.Logger
}

// Result describes what Sync did to one file.
type Result struct {
	Path        string
	Kind        markdown.Kind
	Action      journal.Action
	Key         string
	PreviousKey string
}

// Stats summarizes the outcomes of every Process call on an engine.
type Stats struct {
	Created   int
	Updated   int
	Recreated int
	Skipped   int
	Failed    int
	Errors    []string
}

// Total returns the number of processed files.
func (s Stats) Total() int {
	return s.Created + s.Updated + s.Recreated + s.Skipped + s.Failed
}

// Engine runs the per-file state transition. It is safe for concurrent use,
// though the scheduler only ever calls it from one worker.
type Engine struct {
	tracker  Tracker
	resolver Resolver
	opts     Options
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New wires an engine.
func New(tracker Tracker, resolver Resolver, opts Options) *Engine {
	if opts.Renderer == nil {
		opts.Renderer = markdown.ADFRenderer{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := logging.NewComponentLogger(opts.Logger, "jira-sync").With(slog.String(logging.FieldRun, opts.RunID))
	return &Engine{
		tracker:  tracker,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// RunID identifies this engine's journal entries.
func (e *Engine) RunID() string { return e.opts.RunID }

// Stats returns a snapshot of the accumulated outcomes.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Errors = append([]string(nil), e.stats.Errors...)
	return s
}

// Process syncs path and absorbs every failure: errors are logged with the
// file name, recorded in the journal and counted, never returned.
func (e *Engine) Process(ctx context.Context, path string) {
	res, err := e.Sync(ctx, path)
	logger := e.logger.With(slog.String(logging.FieldFile, path))
	if res.Key != "" {
		logger = logger.With(slog.String(logging.FieldKey, res.Key))
	}

	entry := journal.Entry{
		RunID:       e.opts.RunID,
		Path:        path,
		Kind:        string(res.Kind),
		Action:      res.Action,
		RemoteKey:   res.Key,
		PreviousKey: res.PreviousKey,
	}

	switch {
	case err == nil:
		switch res.Action {
		case journal.ActionCreated:
			logger.Info("created issue", "url", e.tracker.BrowseURL(res.Key))
		case journal.ActionRecreated:
			logger.Warn("remote issue missing; recreated", "previous_key", res.PreviousKey, "url", e.tracker.BrowseURL(res.Key))
		case journal.ActionUpdated:
			logger.Info("updated issue")
		case journal.ActionSkipped:
			logger.Info("update skipped (update mode is skip)")
		}
	case errors.Is(err, catalog.ErrProjectUnavailable):
		// Already reported by the catalog at the start of the failure streak.
		logger.Debug("skipping file; project not validated", logging.Error(err))
		entry.Action = journal.ActionFailed
		entry.Error = err.Error()
	default:
		logger.Error("sync failed", logging.Error(err))
		entry.Action = journal.ActionFailed
		entry.Error = err.Error()
	}

	e.count(entry.Action, path, err)

	if e.opts.Recorder != nil {
		if recErr := e.opts.Recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			logger.Warn("failed to record journal entry", logging.Error(recErr))
		}
	}
}

// Sync reconciles a single file and reports what it did.
func (e *Engine) Sync(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path, Action: journal.ActionFailed}

	if err := e.resolver.Validate(ctx); err != nil {
		return res, err
	}

	doc, err := markdown.ParseFile(path)
	if err != nil {
		return res, err
	}
	res.Kind = doc.Kind
	res.Key = doc.RemoteKey

	if !doc.Linked() {
		key, err := e.create(ctx, doc)
		if err != nil {
			return res, err
		}
		res.Key = key
		res.Action = journal.ActionCreated
		return res, e.link(doc, key)
	}

	if e.opts.SkipUpdates {
		res.Action = journal.ActionSkipped
		return res, nil
	}

	if _, err := e.tracker.GetIssue(ctx, doc.RemoteKey); err != nil {
		if !errors.Is(err, jira.ErrNotFound) {
			return res, fmt.Errorf("fetch %s: %w", doc.RemoteKey, err)
		}
		// Dangling link: the stale key is never reused.
		key, err := e.create(ctx, doc)
		if err != nil {
			return res, err
		}
		res.PreviousKey = doc.RemoteKey
		res.Key = key
		res.Action = journal.ActionRecreated
		return res, e.link(doc, key)
	}

	if err := e.tracker.UpdateIssue(ctx, doc.RemoteKey, e.updateFields(ctx, doc)); err != nil {
		return res, fmt.Errorf("update %s: %w", doc.RemoteKey, err)
	}
	res.Action = journal.ActionUpdated
	return res, nil
}

func (e *Engine) create(ctx context.Context, doc *markdown.Document) (string, error) {
	typeName := e.resolver.IssueTypeName(doc.Kind)
	fields := jira.FieldSet{
		"project":     map[string]string{"key": e.opts.Project},
		"summary":     summaryOf(doc),
		"issuetype":   map[string]string{"name": typeName},
		"description": e.opts.Renderer.RenderDescription(doc),
	}
	e.addEpicField(ctx, doc, fields)

	created, err := e.tracker.CreateIssue(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", typeName, err)
	}
	return created.Key, nil
}

func (e *Engine) updateFields(ctx context.Context, doc *markdown.Document) jira.FieldSet {
	fields := jira.FieldSet{
		"summary":     summaryOf(doc),
		"description": e.opts.Renderer.RenderDescription(doc),
	}
	e.addEpicField(ctx, doc, fields)
	return fields
}

func (e *Engine) addEpicField(ctx context.Context, doc *markdown.Document, fields jira.FieldSet) {
	if doc.Kind != markdown.KindEpic {
		return
	}
	if field := e.resolver.EpicField(ctx); field != "" {
		fields[field] = summaryOf(doc)
	}
}

// link writes the browse URL into the file. The issue already exists at
// this point, so a failure here is reported with the new key.
func (e *Engine) link(doc *markdown.Document, key string) error {
	if _, err := markdown.EnsureLink(doc.Path, e.tracker.BrowseURL(key)); err != nil {
		return fmt.Errorf("issue %s created but link not written: %w", key, err)
	}
	return nil
}

func (e *Engine) count(action journal.Action, path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch action {
	case journal.ActionCreated:
		e.stats.Created++
	case journal.ActionUpdated:
		e.stats.Updated++
	case journal.ActionRecreated:
		e.stats.Recreated++
	case journal.ActionSkipped:
		e.stats.Skipped++
	default:
		e.stats.Failed++
	}
	if err != nil {
		e.stats.Errors = append(e.stats.Errors, fmt.Sprintf("%s: %v", path, err))
	}
}

// summaryOf falls back to the file name when the title line is empty.
func summaryOf(doc *markdown.Document) string {
	if doc.Summary != "" {
		return doc.Summary
	}
	return strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
}
