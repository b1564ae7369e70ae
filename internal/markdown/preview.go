package markdown

import (
	"fmt"
	"strings"

	"github.com/dt-pm-tools/jira-sync/internal/jira"
)

// Preview renders an ADF tree back to markdown, the way JIRA will show the
// description. Node types BodyToADF never emits are rendered best effort.
func Preview(node *jira.ADFNode) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	previewNode(&b, node, "")
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func previewNode(b *strings.Builder, node *jira.ADFNode, listPrefix string) {
	switch node.Type {
	case "doc":
		previewChildren(b, node, "")

	case "paragraph":
		previewChildren(b, node, "")
		b.WriteString("\n\n")

	case "heading":
		b.WriteString(strings.Repeat("#", headingLevel(node)))
		b.WriteString(" ")
		previewChildren(b, node, "")
		b.WriteString("\n\n")

	case "bulletList":
		for i := range node.Content {
			previewNode(b, &node.Content[i], "- ")
		}
		b.WriteString("\n")

	case "orderedList":
		for i := range node.Content {
			previewNode(b, &node.Content[i], fmt.Sprintf("%d. ", i+1))
		}
		b.WriteString("\n")

	case "listItem":
		for i := range node.Content {
			child := &node.Content[i]
			switch {
			case i == 0 && child.Type == "paragraph":
				b.WriteString(listPrefix)
				previewChildren(b, child, "")
				b.WriteString("\n")
			case child.Type == "bulletList" || child.Type == "orderedList":
				indent := strings.Repeat(" ", len(listPrefix))
				for j := range child.Content {
					prefix := "- "
					if child.Type == "orderedList" {
						prefix = fmt.Sprintf("%d. ", j+1)
					}
					previewNode(b, &child.Content[j], indent+prefix)
				}
			default:
				previewNode(b, child, listPrefix)
			}
		}

	case "codeBlock":
		b.WriteString("```\n")
		for _, child := range node.Content {
			b.WriteString(child.Text)
		}
		b.WriteString("\n```\n\n")

	case "rule":
		b.WriteString("---\n\n")

	case "hardBreak":
		b.WriteString("\n")

	case "text":
		b.WriteString(applyMarks(node.Text, node.Marks))

	default:
		previewChildren(b, node, "")
	}
}

func previewChildren(b *strings.Builder, node *jira.ADFNode, listPrefix string) {
	for i := range node.Content {
		previewNode(b, &node.Content[i], listPrefix)
	}
}

// headingLevel reads attrs.level as built locally (int) or decoded from
// JSON (float64).
func headingLevel(node *jira.ADFNode) int {
	level := 2
	switch l := node.Attrs["level"].(type) {
	case int:
		level = l
	case float64:
		level = int(l)
	}
	if level < 1 || level > 6 {
		level = 2
	}
	return level
}

func applyMarks(text string, marks []jira.ADFMark) string {
	for _, mark := range marks {
		switch mark.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			href, _ := mark.Attrs["href"].(string)
			text = fmt.Sprintf("[%s](%s)", text, href)
		}
	}
	return text
}
