package library

import (
	"context"
	"sort"
	"strings"

	"github.com/pders01/prompt-library/internal/models"
)

func (l *Library) notesMap(ctx context.Context) (models.NotesMap, error) {
	notes, err := readTable[models.NotesMap](ctx, l, NotesKey)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = make(models.NotesMap)
	}
	return notes, nil
}

// Notes returns the notes of a prompt, most recently updated first.
func (l *Library) Notes(ctx context.Context, promptID string) ([]models.Note, error) {
	notes, err := l.notesMap(ctx)
	if err != nil {
		return nil, err
	}

	list := append([]models.Note(nil), notes[promptID]...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt > list[j].UpdatedAt
	})
	return list, nil
}

// AddNote attaches a new note to a prompt.
func (l *Library) AddNote(ctx context.Context, promptID, content string) (models.Note, error) {
	notes, err := l.notesMap(ctx)
	if err != nil {
		return models.Note{}, err
	}

	ts := l.now().UnixMilli()
	note := models.Note{
		ID:        l.newID(),
		PromptID:  promptID,
		Content:   strings.TrimSpace(content),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	notes[promptID] = append([]models.Note{note}, notes[promptID]...)

	if err := l.writeTable(ctx, NotesKey, notes); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// UpdateNote replaces the note with the same id, or adds it when the
// prompt has no such note. UpdatedAt is set to the current time.
func (l *Library) UpdateNote(ctx context.Context, note models.Note) (models.Note, error) {
	notes, err := l.notesMap(ctx)
	if err != nil {
		return models.Note{}, err
	}

	note.Content = strings.TrimSpace(note.Content)
	note.UpdatedAt = max(l.now().UnixMilli(), note.CreatedAt)

	list := notes[note.PromptID]
	found := false
	for i := range list {
		if list[i].ID == note.ID {
			list[i] = note
			found = true
			break
		}
	}
	if !found {
		list = append([]models.Note{note}, list...)
	}
	notes[note.PromptID] = list

	if err := l.writeTable(ctx, NotesKey, notes); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// DeleteNote removes one note. Removing the last note of a prompt drops
// the prompt's entry.
func (l *Library) DeleteNote(ctx context.Context, promptID, noteID string) error {
	notes, err := l.notesMap(ctx)
	if err != nil {
		return err
	}

	list := notes[promptID]
	next := list[:0]
	for _, n := range list {
		if n.ID != noteID {
			next = append(next, n)
		}
	}
	if len(next) == len(list) {
		return nil
	}
	if len(next) == 0 {
		delete(notes, promptID)
	} else {
		notes[promptID] = next
	}
	return l.writeTable(ctx, NotesKey, notes)
}

func (l *Library) deleteNotesFor(ctx context.Context, promptID string) error {
	notes, err := l.notesMap(ctx)
	if err != nil {
		return err
	}
	if _, ok := notes[promptID]; !ok {
		return nil
	}
	delete(notes, promptID)
	return l.writeTable(ctx, NotesKey, notes)
}
