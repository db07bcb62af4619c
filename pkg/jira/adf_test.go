package jira

import (
	"encoding/json"
	"testing"
)

func mustParse(t *testing.T, raw string) *Node {
	t.Helper()
	var n Node
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return &n
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{
			name: "hidden link target is preserved",
			doc: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"See "},
				{"type":"text","text":"the mockups","marks":[{"type":"link","attrs":{"href":"https://www.figma.com/design/K/Home?node-id=1-2"}}]}
			]}]}`,
			expected: "See the mockups (https://www.figma.com/design/K/Home?node-id=1-2)",
		},
		{
			name: "link text equal to href is not repeated",
			doc: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"https://x.test/a","marks":[{"type":"link","attrs":{"href":"https://x.test/a"}}]}
			]}]}`,
			expected: "https://x.test/a",
		},
		{
			name: "smart cards render their url",
			doc: `{"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"text","text":"Design: "},{"type":"inlineCard","attrs":{"url":"https://www.figma.com/file/A/B"}}]},
				{"type":"blockCard","attrs":{"url":"https://www.figma.com/design/C/D"}}
			]}`,
			expected: "Design: https://www.figma.com/file/A/B\nhttps://www.figma.com/design/C/D",
		},
		{
			name: "lists and nesting",
			doc: `{"type":"doc","content":[{"type":"bulletList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[
					{"type":"paragraph","content":[{"type":"text","text":"two"}]},
					{"type":"orderedList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"inner"}]}]}]}
				]}
			]}]}`,
			expected: "- one\n- two\n  - inner",
		},
		{
			name: "headings hard breaks and mentions",
			doc: `{"type":"doc","content":[
				{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Scope"}]},
				{"type":"paragraph","content":[
					{"type":"text","text":"line one"},{"type":"hardBreak"},{"type":"text","text":"cc "},
					{"type":"mention","attrs":{"id":"1","text":"@Dana"}}
				]},
				{"type":"rule"}
			]}`,
			expected: "Scope\nline one\ncc @Dana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(mustParse(t, tt.doc)); got != tt.expected {
				t.Errorf("Flatten() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFlatten_Nil(t *testing.T) {
	if got := Flatten(nil); got != "" {
		t.Errorf("Flatten(nil) = %q, want empty", got)
	}
}

func TestTextDocument(t *testing.T) {
	doc := TextDocument("Design check: fail\nScore 40%\n\nSee the PR.")

	if doc.Type != "doc" || doc.Version != 1 {
		t.Fatalf("unexpected root %+v", doc)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(doc.Content))
	}

	// Round trip through Flatten keeps the text.
	if got := Flatten(&doc); got != "Design check: fail\nScore 40%\nSee the PR." {
		t.Errorf("Flatten(TextDocument()) = %q", got)
	}
}
