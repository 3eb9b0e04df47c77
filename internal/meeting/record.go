// Package meeting holds the meeting record model and the pure rules that
// decide whether a meeting warrants a follow-up and who receives it.
package meeting

import (
	"errors"
	"strings"
	"time"

	"followup/internal/granola"
	"followup/internal/textutil"
)

// ErrEmptyID rejects records that could never be tracked in state.
var ErrEmptyID = errors.New("meeting id cannot be empty")

const resourceCalendarSuffix = "@resource.calendar.google.com"

// Attendee is a real participant of a meeting.
type Attendee struct {
	Name    string
	Email   string
	IsOwner bool
}

// Record is the pipeline's view of one meeting.
type Record struct {
	ID          string
	Title       string
	ScheduledAt time.Time
	Attendees   []Attendee
}

// NewRecord validates and builds a record.
func NewRecord(id, title string, scheduledAt time.Time, attendees []Attendee) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrEmptyID
	}
	return Record{
		ID:          id,
		Title:       strings.TrimSpace(title),
		ScheduledAt: scheduledAt,
		Attendees:   append([]Attendee(nil), attendees...),
	}, nil
}

// FromDocument converts a cache document into a record, dropping room and
// resource pseudo-attendees and attendees without an address.
func FromDocument(doc granola.Document, ownerEmail string) (Record, error) {
	owner := normalizeEmail(ownerEmail)
	attendees := make([]Attendee, 0, len(doc.Calendar.Attendees))
	for _, raw := range doc.Calendar.Attendees {
		email := strings.TrimSpace(raw.Email)
		if email == "" || strings.HasSuffix(strings.ToLower(email), resourceCalendarSuffix) {
			continue
		}
		name := strings.TrimSpace(raw.DisplayName)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		attendees = append(attendees, Attendee{
			Name:    name,
			Email:   email,
			IsOwner: raw.Self || (owner != "" && normalizeEmail(email) == owner),
		})
	}
	return NewRecord(doc.ID, doc.DisplayTitle(), doc.StartTime(), attendees)
}

// ExternalNames lists display names of attendees outside the internal domain.
func (r Record) ExternalNames(c Classifier) []string {
	var names []string
	for _, att := range r.Attendees {
		if att.IsOwner || !c.isExternalAddress(att.Email) {
			continue
		}
		name := att.Name
		if name == "" || strings.Contains(name, "@") {
			name = textutil.NameFromEmail(att.Email)
		}
		names = append(names, name)
	}
	return names
}

// RecipientSet splits addresses into external (To) and internal (CC).
type RecipientSet struct {
	To []string
	CC []string
}

// Processable reports whether there is anyone to address the draft to.
func (r RecipientSet) Processable() bool {
	return len(r.To) > 0
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
