package services

import (
	"path/filepath"
	"testing"

	"github.com/WebPressive/webpressive.github.io/internal/db"
	"github.com/WebPressive/webpressive.github.io/internal/models"
)

func newPreferencesService(t *testing.T) *PreferencesService {
	t.Helper()
	if err := db.InitDatabase(filepath.Join(t.TempDir(), "data", "test.db")); err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPreferencesService(db.DB)
}

func TestPreferencesDefaults(t *testing.T) {
	ps := newPreferencesService(t)

	prefs, err := ps.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if prefs.NotesFontSize != models.DefaultNotesFontSize || prefs.ReadingGuideEnabled {
		t.Fatalf("defaults = %+v", prefs)
	}
}

func TestPreferencesUpdateClampsFontSize(t *testing.T) {
	ps := newPreferencesService(t)

	if _, err := ps.Update(models.Preferences{NotesFontSize: 40, ReadingGuideEnabled: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	prefs, err := ps.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if prefs.NotesFontSize != models.MaxNotesFontSize || !prefs.ReadingGuideEnabled {
		t.Fatalf("stored = %+v", prefs)
	}

	if _, err := ps.Update(models.Preferences{NotesFontSize: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	prefs, _ = ps.Get()
	if prefs.NotesFontSize != models.MinNotesFontSize || prefs.ReadingGuideEnabled {
		t.Fatalf("stored = %+v", prefs)
	}
}

func TestPreferencesAdjustAndToggle(t *testing.T) {
	ps := newPreferencesService(t)

	prefs, err := ps.AdjustFontSize(2)
	if err != nil {
		t.Fatalf("AdjustFontSize: %v", err)
	}
	if prefs.NotesFontSize != 16 {
		t.Fatalf("font size = %d, want 16", prefs.NotesFontSize)
	}
	for i := 0; i < 20; i++ {
		prefs, _ = ps.AdjustFontSize(1)
	}
	if prefs.NotesFontSize != models.MaxNotesFontSize {
		t.Fatalf("font size = %d, want %d", prefs.NotesFontSize, models.MaxNotesFontSize)
	}

	prefs, err = ps.ToggleReadingGuide()
	if err != nil {
		t.Fatalf("ToggleReadingGuide: %v", err)
	}
	if !prefs.ReadingGuideEnabled {
		t.Fatal("reading guide not enabled")
	}
	prefs, _ = ps.ToggleReadingGuide()
	if prefs.ReadingGuideEnabled {
		t.Fatal("reading guide not disabled")
	}
}
