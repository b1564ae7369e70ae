package markdown

import (
	"regexp"
	"strings"

	"github.com/dt-pm-tools/jira-sync/internal/jira"
)

// Renderer turns a document into the value sent as the issue description.
// The returned value must be JSON-encodable.
type Renderer interface {
	RenderDescription(doc *Document) any
}

// ADFRenderer renders paragraphs, headings and bullet lists as an Atlassian
// Document Format tree. It is the default renderer.
type ADFRenderer struct{}

// PlainRenderer sends the body as one opaque text blob, for trackers that
// accept plain text descriptions.
type PlainRenderer struct{}

// RenderDescription implements Renderer.
func (ADFRenderer) RenderDescription(doc *Document) any {
	return BodyToADF(doc.Body, doc.Summary)
}

// RenderDescription implements Renderer.
func (PlainRenderer) RenderDescription(doc *Document) any {
	text := strings.TrimSpace(StripLinkLine(doc.Body))
	if text == "" {
		return doc.Summary
	}
	return text
}

var (
	bulletRe  = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
)

// BodyToADF converts a document body to an ADF doc node. JIRA: lines are
// dropped. A body with no blocks yields a single paragraph holding fallback.
func BodyToADF(body, fallback string) *jira.ADFNode {
	b := &blockBuilder{}

	for _, raw := range splitLines(body) {
		if jiraLineRe.MatchString(raw) {
			continue
		}
		line := strings.TrimRight(raw, " \t")

		if strings.TrimSpace(line) == "" {
			b.flushParagraph()
			b.flushList()
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			b.flushParagraph()
			b.items = append(b.items, jira.ADFNode{
				Type: "listItem",
				Content: []jira.ADFNode{{
					Type:    "paragraph",
					Content: parseInline(strings.TrimSpace(m[1])),
				}},
			})
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			b.flushParagraph()
			b.flushList()
			b.blocks = append(b.blocks, jira.ADFNode{
				Type:    "heading",
				Attrs:   map[string]any{"level": len(m[1])},
				Content: parseInline(strings.TrimSpace(m[2])),
			})
			continue
		}

		// A paragraph line after bullets closes the list so block order
		// follows the source.
		b.flushList()
		b.paragraph = append(b.paragraph, strings.TrimSpace(line))
	}
	b.flushParagraph()
	b.flushList()

	if len(b.blocks) == 0 {
		para := jira.ADFNode{Type: "paragraph"}
		if fallback != "" {
			para.Content = []jira.ADFNode{{Type: "text", Text: fallback}}
		}
		b.blocks = append(b.blocks, para)
	}

	return &jira.ADFNode{
		Type:    "doc",
		Version: 1,
		Content: b.blocks,
	}
}

type blockBuilder struct {
	blocks    []jira.ADFNode
	paragraph []string
	items     []jira.ADFNode
}

func (b *blockBuilder) flushParagraph() {
	if len(b.paragraph) == 0 {
		return
	}
	b.blocks = append(b.blocks, jira.ADFNode{
		Type:    "paragraph",
		Content: parseInline(strings.Join(b.paragraph, " ")),
	})
	b.paragraph = nil
}

func (b *blockBuilder) flushList() {
	if len(b.items) == 0 {
		return
	}
	b.blocks = append(b.blocks, jira.ADFNode{
		Type:    "bulletList",
		Content: b.items,
	})
	b.items = nil
}

var inlinePatterns = []struct {
	re     *regexp.Regexp
	markFn func(match []string) jira.ADFNode
}{
	// Links: [text](url)
	{
		re: regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`),
		markFn: func(match []string) jira.ADFNode {
			return jira.ADFNode{
				Type:  "text",
				Text:  match[1],
				Marks: []jira.ADFMark{{Type: "link", Attrs: map[string]any{"href": match[2]}}},
			}
		},
	},
	// Bold: **text**
	{
		re: regexp.MustCompile(`\*\*([^*]+)\*\*`),
		markFn: func(match []string) jira.ADFNode {
			return jira.ADFNode{Type: "text", Text: match[1], Marks: []jira.ADFMark{{Type: "strong"}}}
		},
	},
	// Strikethrough: ~~text~~
	{
		re: regexp.MustCompile(`~~([^~]+)~~`),
		markFn: func(match []string) jira.ADFNode {
			return jira.ADFNode{Type: "text", Text: match[1], Marks: []jira.ADFMark{{Type: "strike"}}}
		},
	},
	// Inline code: `text`
	{
		re: regexp.MustCompile("`([^`]+)`"),
		markFn: func(match []string) jira.ADFNode {
			return jira.ADFNode{Type: "text", Text: match[1], Marks: []jira.ADFMark{{Type: "code"}}}
		},
	},
	// Italic: *text*
	{
		re: regexp.MustCompile(`\*([^*]+)\*`),
		markFn: func(match []string) jira.ADFNode {
			return jira.ADFNode{Type: "text", Text: match[1], Marks: []jira.ADFMark{{Type: "em"}}}
		},
	},
}

// parseInline converts inline markdown (bold, italic, code, links, strike)
// to ADF text nodes. The earliest match wins; ties go to the pattern listed
// first.
func parseInline(text string) []jira.ADFNode {
	if text == "" {
		return nil
	}

	var nodes []jira.ADFNode
	remaining := text
	for remaining != "" {
		best := -1
		var bestLoc []int
		for pi, p := range inlinePatterns {
			loc := p.re.FindStringSubmatchIndex(remaining)
			if loc != nil && (bestLoc == nil || loc[0] < bestLoc[0]) {
				best = pi
				bestLoc = loc
			}
		}

		if best < 0 {
			nodes = append(nodes, jira.ADFNode{Type: "text", Text: remaining})
			break
		}

		if bestLoc[0] > 0 {
			nodes = append(nodes, jira.ADFNode{Type: "text", Text: remaining[:bestLoc[0]]})
		}

		match := make([]string, 0, len(bestLoc)/2)
		for j := 0; j < len(bestLoc); j += 2 {
			if bestLoc[j] >= 0 {
				match = append(match, remaining[bestLoc[j]:bestLoc[j+1]])
			} else {
				match = append(match, "")
			}
		}
		nodes = append(nodes, inlinePatterns[best].markFn(match))

		remaining = remaining[bestLoc[1]:]
	}

	return nodes
}
