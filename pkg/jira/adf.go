package jira

import (
	"strings"
)

// Node is one node of an Atlassian Document Format tree.
type Node struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Mark is a text decoration such as a link.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func (n Node) attr(key string) string {
	if v, ok := n.Attrs[key].(string); ok {
		return v
	}
	return ""
}

// Flatten converts a document to plain text for prompting. Link targets are
// kept even when the display text hides them, since the design links a
// ticket references are frequently pasted as labelled links or smart cards.
func Flatten(doc *Node) string {
	if doc == nil {
		return ""
	}
	f := &flattener{}
	f.block(*doc, "")
	return strings.Join(f.lines, "\n")
}

type flattener struct {
	lines []string
}

func (f *flattener) block(n Node, indent string) {
	switch n.Type {
	case "bulletList", "orderedList":
		for _, item := range n.Content {
			f.listItem(item, indent)
		}
	case "listItem":
		f.listItem(n, indent)
	case "paragraph", "heading", "codeBlock":
		f.text(inline(n.Content), indent)
	case "blockCard", "embedCard":
		f.text(n.attr("url"), indent)
	case "text", "hardBreak", "inlineCard", "mention", "emoji", "status":
		f.text(inline([]Node{n}), indent)
	case "rule", "media", "mediaGroup", "mediaSingle":
		// no text
	default:
		for _, c := range n.Content {
			f.block(c, indent)
		}
	}
}

// listItem renders the item's blocks one level deeper and puts the bullet
// on its first line.
func (f *flattener) listItem(item Node, indent string) {
	start := len(f.lines)
	child := indent + "  "
	for _, c := range item.Content {
		f.block(c, child)
	}
	if len(f.lines) > start {
		f.lines[start] = indent + "- " + strings.TrimPrefix(f.lines[start], child)
	}
}

func (f *flattener) text(s, indent string) {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f.lines = append(f.lines, indent+line)
	}
}

func inline(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case "text":
			b.WriteString(n.Text)
			if href := linkHref(n); href != "" && href != n.Text {
				b.WriteString(" (" + href + ")")
			}
		case "hardBreak":
			b.WriteString("\n")
		case "inlineCard":
			b.WriteString(n.attr("url"))
		case "mention":
			b.WriteString("@" + strings.TrimPrefix(n.attr("text"), "@"))
		case "emoji":
			if t := n.attr("text"); t != "" {
				b.WriteString(t)
			} else {
				b.WriteString(n.attr("shortName"))
			}
		case "status":
			b.WriteString(n.attr("text"))
		default:
			b.WriteString(inline(n.Content))
		}
	}
	return b.String()
}

func linkHref(n Node) string {
	for _, m := range n.Marks {
		if m.Type != "link" {
			continue
		}
		if href, ok := m.Attrs["href"].(string); ok {
			return href
		}
	}
	return ""
}

// TextDocument builds a minimal document from plain text: blank lines
// separate paragraphs and single newlines become hard breaks.
func TextDocument(text string) Node {
	doc := Node{Type: "doc", Version: 1}
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		p := Node{Type: "paragraph"}
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				p.Content = append(p.Content, Node{Type: "hardBreak"})
			}
			if line != "" {
				p.Content = append(p.Content, Node{Type: "text", Text: line})
			}
		}
		doc.Content = append(doc.Content, p)
	}
	return doc
}
