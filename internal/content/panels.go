package content

import "strings"

// Panel is one AI-generated notes section for a meeting.
type Panel struct {
	Title   string `json:"title"`
	Content Node   `json:"content"`
}

// PanelsToNotes renders panels as "Title:\ntext" blocks separated by blank
// lines. Panels with no text are dropped.
func PanelsToNotes(panels []Panel) string {
	blocks := make([]string, 0, len(panels))
	for _, panel := range panels {
		text := ExtractText(panel.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		title := strings.TrimSpace(panel.Title)
		if title == "" {
			title = "Notes"
		}
		blocks = append(blocks, title+":\n"+text)
	}
	return strings.Join(blocks, "\n\n")
}
