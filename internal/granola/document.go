package granola

import (
	"strings"
	"time"
)

// Document is the typed view of one meeting entry in the cache.
type Document struct {
	ID        string
	Title     string
	CreatedAt time.Time
	DeletedAt time.Time
	Calendar  CalendarEvent
}

// CalendarEvent is the calendar invite attached to a document, if any.
type CalendarEvent struct {
	Summary   string
	Start     time.Time
	Attendees []CalendarAttendee
}

// CalendarAttendee is one invitee as recorded by the calendar provider.
type CalendarAttendee struct {
	Email       string
	DisplayName string
	Self        bool
}

// Deleted reports whether the user removed the document in the app.
func (d Document) Deleted() bool {
	return !d.DeletedAt.IsZero()
}

// StartTime is the calendar start when present, else the creation time.
func (d Document) StartTime() time.Time {
	if !d.Calendar.Start.IsZero() {
		return d.Calendar.Start
	}
	return d.CreatedAt
}

// DisplayTitle falls back from the document title to the invite summary.
func (d Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Calendar.Summary != "" {
		return d.Calendar.Summary
	}
	return "Untitled Meeting"
}

func documentFromRaw(key string, node any) Document {
	doc := Document{
		ID:        lookupString(node, "id"),
		Title:     lookupString(node, "title"),
		CreatedAt: parseTimestamp(lookupString(node, "created_at")),
		DeletedAt: parseTimestamp(lookupString(node, "deleted_at")),
	}
	if doc.ID == "" {
		doc.ID = strings.TrimSpace(key)
	}
	if doc.DeletedAt.IsZero() && deletionMarked(node) {
		// Unparseable but set still means deleted.
		doc.DeletedAt = time.Unix(0, 0).UTC()
	}

	event, _ := lookup(node, "google_calendar_event")
	doc.Calendar = CalendarEvent{
		Summary: lookupString(event, "summary"),
		Start:   parseTimestamp(lookupString(event, "start", "dateTime")),
	}
	for _, raw := range lookupSlice(event, "attendees") {
		doc.Calendar.Attendees = append(doc.Calendar.Attendees, CalendarAttendee{
			Email:       lookupString(raw, "email"),
			DisplayName: lookupString(raw, "displayName"),
			Self:        lookupBool(raw, "self"),
		})
	}
	return doc
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// deletionMarked reports whether deleted_at carries a set value. Empty
// strings, false and zero are treated like an absent key.
func deletionMarked(node any) bool {
	value, ok := lookup(node, "deleted_at")
	if !ok {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}
