// Package catalog maps document kinds onto the issue types and custom
// fields a JIRA project actually offers.
//
// A Catalog is created once per process and owned by the sync engine. It
// validates the project on first use, remembers the project's issue type
// names, and lazily loads the create-screen metadata used to find the
// "Epic Name" custom field. Nothing is invalidated while the process runs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/dt-pm-tools/jira-sync/internal/jira"
	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/dt-pm-tools/jira-sync/internal/markdown"
)

// ErrProjectUnavailable is returned by Validate when the project cannot be
// fetched. No document should be synced while it is returned.
var ErrProjectUnavailable = errors.New("project unavailable")

// Source is the part of the JIRA client the catalog needs.
type Source interface {
	GetProject(ctx context.Context, key string) (*jira.Project, error)
	GetCreateMeta(ctx context.Context, projectKey string) (*jira.CreateMeta, error)
}

// Options configures operator overrides.
type Options struct {
	EpicNameField string // explicit custom field id, skips detection
	StoryType     string // issue type name used for stories
	TaskType      string // issue type name used for tasks
	Logger        *slog.Logger
}

// Candidate issue type names per kind, canonical name first.
var kindCandidates = map[markdown.Kind][]string{
	markdown.KindEpic:  {"Epic", "Эпик"},
	markdown.KindStory: {"Story", "User Story", "История"},
	markdown.KindTask:  {"Task", "Задача"},
}

// Field labels that identify the epic name field, compared case-folded.
var epicNameLabels = []string{"epic name", "имя эпика", "название эпика"}

var fold = cases.Fold()

// Catalog caches what the project accepts.
type Catalog struct {
	src     Source
	project string
	opts    Options
	logger  *slog.Logger

	mu         sync.Mutex
	validated  bool
	failLogged bool
	issueTypes []string
	meta       *jira.CreateMeta
	epicField  string
	epicLookup bool
}

// New returns a catalog for project.
func New(src Source, project string, opts Options) *Catalog {
	return &Catalog{
		src:       src,
		project:   project,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "catalog"),
		epicField: strings.TrimSpace(opts.EpicNameField),
	}
}

// Validate checks the project exists and caches its issue type names. Once
// it succeeds it never calls JIRA again. A failure is logged the first time
// only and is retried on the next call.
func (c *Catalog) Validate(ctx context.Context) error {
	c.mu.Lock()
	if c.validated {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	project, err := c.src.GetProject(ctx, c.project)
	if err != nil {
		c.mu.Lock()
		first := !c.failLogged
		c.failLogged = true
		c.mu.Unlock()
		if first {
			c.logger.Error("project validation failed; verify it exists and the user has permission",
				"project", c.project, logging.Error(err))
		}
		return fmt.Errorf("%w: %s: %v", ErrProjectUnavailable, c.project, err)
	}

	names := make([]string, 0, len(project.IssueTypes))
	for _, it := range project.IssueTypes {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}

	c.mu.Lock()
	c.validated = true
	c.failLogged = false
	c.issueTypes = names
	c.mu.Unlock()

	c.logger.Info("project ok", "project", c.project, "issue_types", strings.Join(names, ", "))
	return nil
}

// IssueTypes returns the cached issue type names (empty before Validate).
func (c *Catalog) IssueTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issueTypes)
}

// IssueTypeName returns the issue type to create for kind. Operator
// overrides win. Otherwise the first candidate the project offers is used,
// then the Story/Task cross fallback, then the canonical name unchanged.
func (c *Catalog) IssueTypeName(kind markdown.Kind) string {
	switch {
	case kind == markdown.KindStory && c.opts.StoryType != "":
		return c.opts.StoryType
	case kind == markdown.KindTask && c.opts.TaskType != "":
		return c.opts.TaskType
	}

	candidates, ok := kindCandidates[kind]
	if !ok {
		return string(kind)
	}

	available := c.IssueTypes()
	if len(available) == 0 {
		return candidates[0]
	}
	if name, ok := pick(available, candidates); ok {
		return name
	}

	var fallback []string
	switch kind {
	case markdown.KindStory:
		fallback = kindCandidates[markdown.KindTask]
	case markdown.KindTask:
		fallback = kindCandidates[markdown.KindStory]
	}
	if name, ok := pick(available, fallback); ok {
		c.logger.Warn("issue type not offered by project; using fallback",
			"kind", string(kind), "issue_type", name)
		return name
	}
	return candidates[0]
}

// EpicNameField returns the custom field that stores an epic's short name,
// detecting it from the create metadata when not configured. The answer is
// cached for the process lifetime; "" means the project has no such field.
func (c *Catalog) EpicNameField(ctx context.Context) string {
	c.mu.Lock()
	if c.epicField != "" || c.epicLookup {
		field := c.epicField
		c.mu.Unlock()
		return field
	}
	c.mu.Unlock()

	meta, err := c.createMeta(ctx)
	if err != nil {
		return ""
	}

	field := ""
	if it := c.epicIssueType(meta); it != nil {
		ids := make([]string, 0, len(it.Fields))
		for id := range it.Fields {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if isEpicNameLabel(it.Fields[id].Name) {
				field = id
				break
			}
		}
	}

	c.mu.Lock()
	c.epicLookup = true
	if c.epicField == "" {
		c.epicField = field
	}
	field = c.epicField
	c.mu.Unlock()

	if field != "" {
		c.logger.Info("detected epic name field", "field", field)
	}
	return field
}

// EpicField returns the epic name field only when the epic create screen
// still lists it. An absent field is logged and "" is returned so the
// request is sent without it.
func (c *Catalog) EpicField(ctx context.Context) string {
	field := c.EpicNameField(ctx)
	if field == "" {
		return ""
	}

	meta, err := c.createMeta(ctx)
	if err != nil {
		c.logger.Warn("skipping epic name field; create metadata unavailable", "field", field)
		return ""
	}
	it := c.epicIssueType(meta)
	if it == nil {
		c.logger.Warn("skipping epic name field; no epic issue type on create screen", "field", field)
		return ""
	}
	if _, ok := it.Fields[field]; !ok {
		c.logger.Warn("skipping epic name field; not present on create screen", "field", field)
		return ""
	}
	return field
}

// createMeta loads the create metadata once. Failures are not cached.
func (c *Catalog) createMeta(ctx context.Context) (*jira.CreateMeta, error) {
	c.mu.Lock()
	meta := c.meta
	c.mu.Unlock()
	if meta != nil {
		return meta, nil
	}

	meta, err := c.src.GetCreateMeta(ctx, c.project)
	if err != nil {
		c.logger.Warn("failed to load create metadata", "project", c.project, logging.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if c.meta == nil {
		c.meta = meta
	}
	meta = c.meta
	c.mu.Unlock()
	return meta, nil
}

func (c *Catalog) epicIssueType(meta *jira.CreateMeta) *jira.CreateMetaIssueType {
	project := meta.Project(c.project)
	if project == nil {
		return nil
	}
	for _, name := range kindCandidates[markdown.KindEpic] {
		for i := range project.IssueTypes {
			if project.IssueTypes[i].Name == name {
				return &project.IssueTypes[i]
			}
		}
	}
	return nil
}

func pick(available, candidates []string) (string, bool) {
	for _, want := range candidates {
		for _, have := range available {
			if have == want {
				return have, true
			}
		}
	}
	for _, want := range candidates {
		for _, have := range available {
			if fold.String(have) == fold.String(want) {
				return have, true
			}
		}
	}
	return "", false
}

func isEpicNameLabel(name string) bool {
	folded := fold.String(name)
	for _, label := range epicNameLabels {
		if strings.Contains(folded, fold.String(label)) {
			return true
		}
	}
	return false
}
