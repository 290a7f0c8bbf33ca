package render

import (
	"strconv"
	"strings"
)

// speakerNotesPrefix marks a document subject carrying per-page notes as
// SPEAKERNOTES|page|note|page|note|...
const speakerNotesPrefix = "SPEAKERNOTES|"

// ParseSpeakerNotes extracts per-page notes from a document subject string.
// Producers disagree on whether page numbers are 0- or 1-indexed, so each
// note is stored under page+1 and, for plausible 1-indexed values, under page
// as well. Keys are 1-indexed page numbers. A subject without the prefix
// yields nil.
func ParseSpeakerNotes(subject string) map[int]string {
	if !strings.HasPrefix(subject, speakerNotesPrefix) {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(subject, speakerNotesPrefix), "|")

	notes := make(map[int]string)
	for i := 0; i+1 < len(parts); i += 2 {
		pageStr, note := parts[i], parts[i+1]
		if pageStr == "" || note == "" {
			continue
		}
		page, err := strconv.Atoi(strings.TrimSpace(pageStr))
		if err != nil {
			continue
		}
		notes[page+1] = note
		if page > 0 && page <= 100 {
			notes[page] = note
		}
	}
	if len(notes) == 0 {
		return nil
	}
	return notes
}

// NoteForPage looks up the note of a 1-indexed page, falling back to the
// previous page number for 0-indexed producers.
func NoteForPage(notes map[int]string, page int) string {
	if note, ok := notes[page]; ok {
		return note
	}
	if page > 1 {
		return notes[page-1]
	}
	return ""
}
