package domain

import (
	"time"
)

// ScoreRecord is the persisted outcome of an attempt. Exactly one live
// record exists per (UserID, ThemeID) pair: a later attempt overwrites the
// earlier one.
type ScoreRecord struct {
	DocID           string    `json:"doc_id"`
	UserID          string    `json:"user_id"`
	ThemeID         string    `json:"theme_id"`
	Level           string    `json:"level,omitempty"`
	Type            string    `json:"type,omitempty"`
	Sub             string    `json:"sub,omitempty"`
	DisplayID       string    `json:"display_id,omitempty"`
	Score           int       `json:"score"`
	IsPass          bool      `json:"is_pass"`
	DurationSeconds int       `json:"duration_s"`
	CharCount       int       `json:"char_count"`
	TranscriptRaw   string    `json:"transcript_raw,omitempty"`
	TranscriptHira  string    `json:"transcript_hira,omitempty"`
	Diagnostics     string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
