package jira

// Issue represents a JIRA issue from the REST API v3.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields contains the issue fields we care about.
type Fields struct {
	Summary     string    `json:"summary"`
	Status      Status    `json:"status"`
	IssueType   IssueType `json:"issuetype"`
	Description any       `json:"description,omitempty"`
	Updated     string    `json:"updated,omitempty"`
}

// Status represents a JIRA status.
type Status struct {
	Name string `json:"name"`
}

// IssueType represents a JIRA issue type.
type IssueType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// ADFNode represents a node in the Atlassian Document Format.
// Version is only set on the root "doc" node.
type ADFNode struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
}

// ADFMark represents an inline formatting mark in ADF.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// FieldSet is the "fields" object sent on create and update. It is a map
// because custom fields (customfield_NNNNN) are only known at runtime.
type FieldSet map[string]any

// IssuePayload is the body for POST /issue and PUT /issue/{key}.
type IssuePayload struct {
	Fields FieldSet `json:"fields"`
}

// CreatedIssue is the response from POST /issue.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Project is the subset of GET /project/{key} used to validate issue types.
type Project struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	IssueTypes []IssueType `json:"issueTypes"`
}

// CreateMeta is the response from GET /issue/createmeta with
// expand=projects.issuetypes.fields.
type CreateMeta struct {
	Projects []CreateMetaProject `json:"projects"`
}

// CreateMetaProject lists the creatable issue types of one project.
type CreateMetaProject struct {
	ID         string                `json:"id"`
	Key        string                `json:"key"`
	IssueTypes []CreateMetaIssueType `json:"issuetypes"`
}

// CreateMetaIssueType maps field ids to their metadata for one issue type.
type CreateMetaIssueType struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Fields map[string]FieldMeta `json:"fields"`
}

// FieldMeta describes one field on the create screen.
type FieldMeta struct {
	Name     string `json:"name"`
	Key      string `json:"key,omitempty"`
	Required bool   `json:"required"`
}

// Project returns the entry for key, or the first project when key is not
// listed. It returns nil when the meta is empty.
func (m *CreateMeta) Project(key string) *CreateMetaProject {
	if m == nil || len(m.Projects) == 0 {
		return nil
	}
	for i := range m.Projects {
		if m.Projects[i].Key == key {
			return &m.Projects[i]
		}
	}
	return &m.Projects[0]
}
