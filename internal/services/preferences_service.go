package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/WebPressive/webpressive.github.io/internal/models"
)

// defaultProfile is the single row used by a local presenter.
const defaultProfile = "default"

// PreferencesService keeps the presenter's view settings between runs
type PreferencesService struct {
	database *sql.DB
}

// NewPreferencesService creates a new preferences service
func NewPreferencesService(database *sql.DB) *PreferencesService {
	return &PreferencesService{
		database: database,
	}
}

// ClampFontSize limits a speaker notes font size to the supported range.
func ClampFontSize(size int) int {
	if size < models.MinNotesFontSize {
		return models.MinNotesFontSize
	}
	if size > models.MaxNotesFontSize {
		return models.MaxNotesFontSize
	}
	return size
}

// Get returns the stored preferences, or the defaults if none were saved
func (ps *PreferencesService) Get() (*models.Preferences, error) {
	query := `SELECT notes_font_size, reading_guide_enabled, updated_at
		FROM preferences WHERE id = ?`

	var prefs models.Preferences
	err := ps.database.QueryRow(query, defaultProfile).Scan(
		&prefs.NotesFontSize,
		&prefs.ReadingGuideEnabled,
		&prefs.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return &models.Preferences{NotesFontSize: models.DefaultNotesFontSize}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	prefs.NotesFontSize = ClampFontSize(prefs.NotesFontSize)
	return &prefs, nil
}

// Update stores prefs, clamping the font size into range
func (ps *PreferencesService) Update(prefs models.Preferences) (*models.Preferences, error) {
	prefs.NotesFontSize = ClampFontSize(prefs.NotesFontSize)
	prefs.UpdatedAt = time.Now()

	query := `INSERT INTO preferences
		(id, notes_font_size, reading_guide_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notes_font_size = excluded.notes_font_size,
			reading_guide_enabled = excluded.reading_guide_enabled,
			updated_at = excluded.updated_at`

	_, err := ps.database.Exec(query, defaultProfile, prefs.NotesFontSize, prefs.ReadingGuideEnabled, prefs.UpdatedAt, prefs.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	log.Printf("Preferences saved: notesFontSize=%d, readingGuide=%t", prefs.NotesFontSize, prefs.ReadingGuideEnabled)
	return &prefs, nil
}

// AdjustFontSize changes the notes font size by delta, staying in range
func (ps *PreferencesService) AdjustFontSize(delta int) (*models.Preferences, error) {
	prefs, err := ps.Get()
	if err != nil {
		return nil, err
	}
	prefs.NotesFontSize += delta
	return ps.Update(*prefs)
}

// ToggleReadingGuide flips the reading guide setting
func (ps *PreferencesService) ToggleReadingGuide() (*models.Preferences, error) {
	prefs, err := ps.Get()
	if err != nil {
		return nil, err
	}
	prefs.ReadingGuideEnabled = !prefs.ReadingGuideEnabled
	return ps.Update(*prefs)
}
