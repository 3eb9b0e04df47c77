package content

import (
	"encoding/json"
	"strings"
	"testing"
)

const panelJSON = `[
  {
    "title": "Summary",
    "content": {
      "type": "doc",
      "content": [
        {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Decisions"}]},
        {"type": "paragraph", "content": [{"type": "text", "text": "Go with "}, {"type": "text", "marks": [{"type": "bold"}], "text": "option B"}]},
        {"type": "bulletList", "content": [
          {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Send pricing"}]}]},
          {"type": "listItem", "content": [{"type": "paragraph", "content": []}]}
        ]},
        {"type": "orderedList", "content": [
          {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Draft contract"}]}]},
          {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Schedule review"}]}]}
        ]},
        {"type": "blockquote", "content": [
          {"type": "paragraph", "content": [{"type": "text", "text": "Quoted remark"}]}
        ]},
        {"type": "heading", "content": [{"type": "text", "text": "Default level"}]}
      ]
    }
  },
  {"title": "", "content": {"type": "doc", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Untitled body"}]}]}},
  {"title": "Empty", "content": {"type": "doc", "content": []}},
  {"title": "Plain", "content": "raw string content"}
]`

func decodePanels(t *testing.T) []Panel {
	t.Helper()
	var panels []Panel
	if err := json.Unmarshal([]byte(panelJSON), &panels); err != nil {
		t.Fatalf("decode panels: %v", err)
	}
	return panels
}

func TestExtractTextRendersBlocks(t *testing.T) {
	panels := decodePanels(t)
	text := ExtractText(panels[0].Content)

	for _, want := range []string{
		"## Decisions",
		"Go with option B",
		"- Send pricing",
		"1. Draft contract",
		"2. Schedule review",
		"Quoted remark",
		"### Default level",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in extracted text:\n%s", want, text)
		}
	}
	if strings.Contains(text, "- \n") {
		t.Fatalf("empty list items must be dropped:\n%s", text)
	}
	if strings.Index(text, "Decisions") > strings.Index(text, "Quoted remark") {
		t.Fatal("block order not preserved")
	}
}

func TestPanelsToNotes(t *testing.T) {
	notes := PanelsToNotes(decodePanels(t))
	if !strings.HasPrefix(notes, "Summary:\n## Decisions") {
		t.Fatalf("unexpected notes prefix:\n%s", notes)
	}
	if !strings.Contains(notes, "\n\nNotes:\nUntitled body") {
		t.Fatalf("expected default panel title:\n%s", notes)
	}
	if strings.Contains(notes, "Empty:") {
		t.Fatalf("empty panel should be skipped:\n%s", notes)
	}
	if !strings.Contains(notes, "Plain:\nraw string content") {
		t.Fatalf("expected string content panel:\n%s", notes)
	}
}

func TestFormatTranscriptSingleSourceIsEmpty(t *testing.T) {
	segments := []TranscriptSegment{
		{Text: "hello everyone", Source: SourceMicrophone},
		{Text: "", Source: SourceSystem},
		{Text: "   ", Source: SourceSystem},
		{Text: "more talk", Source: SourceMicrophone},
	}
	if got := FormatTranscript(segments, true); got != "" {
		t.Fatalf("expected empty transcript for single source, got %q", got)
	}
	if got := FormatTranscript(segments, false); got != "Me: hello everyone more talk" {
		t.Fatalf("unexpected unattributed transcript: %q", got)
	}
}

func TestFormatTranscriptMergesTurns(t *testing.T) {
	segments := []TranscriptSegment{
		{Text: "Thanks for joining.", Source: SourceMicrophone},
		{Text: "Happy to be here.", Source: SourceSystem},
		{Text: "We liked the demo.", Source: SourceSystem},
		{Text: "Great.", Source: "MICROPHONE"},
	}
	want := "Me: Thanks for joining.\nThem: Happy to be here. We liked the demo.\nMe: Great."
	if got := FormatTranscript(segments, true); got != want {
		t.Fatalf("unexpected transcript:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatTranscriptEmptyInput(t *testing.T) {
	if got := FormatTranscript(nil, false); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestPayloadText(t *testing.T) {
	tests := []struct {
		payload Payload
		want    string
	}{
		{Payload{Notes: "n"}, "n"},
		{Payload{Transcript: "t"}, "TRANSCRIPT:\nt"},
		{Payload{Notes: "n", Transcript: "t"}, "NOTES:\nn\n\nTRANSCRIPT:\nt"},
	}
	for _, tc := range tests {
		if got := tc.payload.Text(); got != tc.want {
			t.Fatalf("Text() = %q, want %q", got, tc.want)
		}
	}
	if !(Payload{Notes: " "}).Empty() {
		t.Fatal("expected whitespace payload to be empty")
	}
}
