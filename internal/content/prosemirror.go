package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one block or inline run of a structured note document.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// UnmarshalJSON tolerates panels whose content is delivered as a bare string
// by treating it as a single paragraph.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*n = Node{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*n = Node{Type: "doc", Content: []Node{{Type: "paragraph", Content: []Node{{Type: "text", Text: text}}}}}
		return nil
	}
	type plain Node
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*n = Node(decoded)
	return nil
}

// ExtractText renders the children of root depth-first. Headings get one '#'
// per level, list items become "- " or "N. " lines, and unrecognized blocks
// are descended into so their text is kept.
func ExtractText(root Node) string {
	parts := make([]string, 0, len(root.Content))
	for _, block := range root.Content {
		switch block.Type {
		case "heading":
			if text := strings.TrimSpace(inlineText(block)); text != "" {
				parts = append(parts, strings.Repeat("#", headingLevel(block))+" "+text+"\n")
			}
		case "bulletList":
			for _, item := range block.Content {
				if text := strings.TrimSpace(inlineText(item)); text != "" {
					parts = append(parts, "- "+text+"\n")
				}
			}
		case "orderedList":
			for i, item := range block.Content {
				if text := strings.TrimSpace(inlineText(item)); text != "" {
					parts = append(parts, fmt.Sprintf("%d. %s\n", i+1, text))
				}
			}
		case "paragraph":
			if text := strings.TrimSpace(inlineText(block)); text != "" {
				parts = append(parts, text+"\n")
			}
		case "text":
			if text := strings.TrimSpace(block.Text); text != "" {
				parts = append(parts, text+"\n")
			}
		default:
			if len(block.Content) == 0 {
				continue
			}
			if nested := ExtractText(block); strings.TrimSpace(nested) != "" {
				parts = append(parts, nested+"\n")
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func inlineText(node Node) string {
	var b strings.Builder
	for _, item := range node.Content {
		if item.Type == "text" {
			b.WriteString(item.Text)
			continue
		}
		if item.Type == "hardBreak" {
			b.WriteByte(' ')
			continue
		}
		if len(item.Content) > 0 {
			b.WriteString(inlineText(item))
		}
	}
	return b.String()
}

func headingLevel(node Node) int {
	const fallback = 3
	raw, ok := node.Attrs["level"]
	if !ok {
		return fallback
	}
	var level int
	switch v := raw.(type) {
	case float64:
		level = int(v)
	case int:
		level = v
	default:
		return fallback
	}
	if level < 1 || level > 6 {
		return fallback
	}
	return level
}
