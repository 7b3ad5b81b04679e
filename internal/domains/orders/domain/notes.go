package domain

import (
	"strings"
	"time"
)

// AdminNote is an internal note attached to an order by staff.
type AdminNote struct {
	Text      string
	Author    string
	CreatedAt time.Time
}

// NoteBook holds admin notes in insertion order.
type NoteBook struct {
	notes []AdminNote
}

// Entries returns a copy of the notes.
func (n NoteBook) Entries() []AdminNote {
	return append([]AdminNote(nil), n.notes...)
}

// Len returns the number of notes.
func (n NoteBook) Len() int { return len(n.notes) }

// AddNote appends a note and the matching admin_note_added timeline entry.
func (o *Order) AddNote(text, author string, now time.Time) (AdminNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return AdminNote{}, ErrEmptyNote
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return AdminNote{}, ErrMissingNoteAuthor
	}
	now = now.UTC()
	note := AdminNote{Text: text, Author: author, CreatedAt: now}
	o.notes.notes = append(o.notes.notes, note)
	o.timeline.append(TimelineEvent{
		Kind:       EventAdminNoteAdded,
		Message:    "Admin note added",
		Actor:      author,
		OccurredAt: now,
	})
	o.touch(now)
	o.record(AdminNoteAdded{BaseEvent: o.base(now), Author: author})
	return note, nil
}
