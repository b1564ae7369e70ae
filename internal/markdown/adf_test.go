package markdown

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dt-pm-tools/jira-sync/internal/jira"
)

func blockSummary(t *testing.T, node *jira.ADFNode) []string {
	t.Helper()
	var out []string
	for _, block := range node.Content {
		switch block.Type {
		case "paragraph":
			out = append(out, "p:"+plainText(block))
		case "heading":
			level, _ := block.Attrs["level"].(int)
			out = append(out, "h"+string(rune('0'+level))+":"+plainText(block))
		case "bulletList":
			var items []string
			for _, item := range block.Content {
				items = append(items, plainText(item))
			}
			out = append(out, "ul:"+strings.Join(items, ","))
		default:
			out = append(out, block.Type)
		}
	}
	return out
}

func plainText(node jira.ADFNode) string {
	if node.Type == "text" {
		return node.Text
	}
	var b strings.Builder
	for _, child := range node.Content {
		b.WriteString(plainText(child))
	}
	return b.String()
}

func TestBodyToADFBlockOrder(t *testing.T) {
	doc := BodyToADF("Line1\n\n- a\n- b\n\n## Heading\nLine2", "fallback")

	if doc.Type != "doc" || doc.Version != 1 {
		t.Fatalf("unexpected root: type=%q version=%d", doc.Type, doc.Version)
	}
	got := blockSummary(t, doc)
	want := []string{"p:Line1", "ul:a,b", "h2:Heading", "p:Line2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
}

func TestBodyToADFRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "paragraph lines join with a space",
			body: "first line\n  second line  \nthird",
			want: []string{"p:first line second line third"},
		},
		{
			name: "all bullet markers",
			body: "- dash\n* star\n+ plus",
			want: []string{"ul:dash,star,plus"},
		},
		{
			name: "bullet flushes open paragraph",
			body: "intro\n- item",
			want: []string{"p:intro", "ul:item"},
		},
		{
			name: "heading flushes paragraph and list",
			body: "text\n- item\n# Title\nafter",
			want: []string{"p:text", "ul:item", "h1:Title", "p:after"},
		},
		{
			name: "paragraph after list keeps source order",
			body: "- item\ntrailing text",
			want: []string{"ul:item", "p:trailing text"},
		},
		{
			name: "seven hashes is a paragraph",
			body: "####### not a heading",
			want: []string{"p:####### not a heading"},
		},
		{
			name: "hash without space is a paragraph",
			body: "#tag",
			want: []string{"p:#tag"},
		},
		{
			name: "heading level six",
			body: "###### Deep",
			want: []string{"h6:Deep"},
		},
		{
			name: "JIRA line is dropped",
			body: "# EPIC: Launch\nJIRA: https://x/browse/BOOK-1\nBody",
			want: []string{"h1:EPIC: Launch", "p:Body"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := blockSummary(t, BodyToADF(tt.body, "fallback"))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("blocks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBodyToADFFallback(t *testing.T) {
	doc := BodyToADF("\n  \nJIRA: https://x/browse/BOOK-1\n", "Launch")
	got := blockSummary(t, doc)
	if len(got) != 1 || got[0] != "p:Launch" {
		t.Fatalf("blocks = %v, want fallback paragraph", got)
	}

	empty := BodyToADF("", "")
	if len(empty.Content) != 1 || empty.Content[0].Type != "paragraph" || len(empty.Content[0].Content) != 0 {
		t.Fatalf("expected one empty paragraph, got %+v", empty.Content)
	}
}

func TestParseInlineMarks(t *testing.T) {
	nodes := parseInline("see **bold** and [docs](https://x.dev) or `code`")

	var marks []string
	for _, n := range nodes {
		for _, m := range n.Marks {
			marks = append(marks, m.Type+":"+n.Text)
		}
	}
	want := "strong:bold|link:docs|code:code"
	if strings.Join(marks, "|") != want {
		t.Fatalf("marks = %v, want %s", marks, want)
	}
	if nodes[0].Text != "see " {
		t.Fatalf("leading text = %q", nodes[0].Text)
	}
}

func TestADFRendererJSONShape(t *testing.T) {
	doc := &Document{Summary: "Launch", Body: "Hello"}
	raw, err := json.Marshal(ADFRenderer{}.RenderDescription(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]}`
	if string(raw) != want {
		t.Fatalf("json = %s\nwant   %s", raw, want)
	}
}

func TestPlainRenderer(t *testing.T) {
	doc := &Document{Summary: "Launch", Body: "# EPIC: Launch\nJIRA: https://x/browse/BOOK-1\nBody\n"}
	got := PlainRenderer{}.RenderDescription(doc)
	if got != "# EPIC: Launch\nBody" {
		t.Fatalf("plain = %q", got)
	}

	empty := &Document{Summary: "Only summary", Body: "JIRA: https://x/browse/BOOK-1"}
	if got := (PlainRenderer{}).RenderDescription(empty); got != "Only summary" {
		t.Fatalf("plain fallback = %q", got)
	}
}
