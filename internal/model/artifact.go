package model

import "time"

// ArtifactTTL is how long a generated audio file is kept before the sweep
// reclaims it.
const ArtifactTTL = 24 * time.Hour

// ArtifactSettings is the settings blob stored alongside an artifact.
type ArtifactSettings struct {
	Speed float64 `json:"speed"`
	Pitch float64 `json:"pitch"`
	Style string  `json:"style,omitempty"`
}

// Artifact is the metadata record for one generated audio file. Exactly one
// object in storage backs one record; the sweep deletes them together.
type Artifact struct {
	ID         string           `db:"id" json:"id"`
	UserID     *string          `db:"user_id" json:"user_id,omitempty"` // nil for anonymous callers
	Filename   string           `db:"filename" json:"filename"`
	Text       string           `db:"text" json:"text"`
	TextLength int              `db:"text_length" json:"text_length"`
	Voice      string           `db:"voice" json:"voice"`
	Language   string           `db:"language" json:"language"`
	Provider   string           `db:"provider" json:"provider"`
	Format     string           `db:"format" json:"format"` // "wav" or "mp3"
	Duration   float64          `db:"duration" json:"duration"`
	FileSize   int              `db:"file_size" json:"file_size"`
	Settings   ArtifactSettings `db:"settings" json:"settings"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time        `db:"expires_at" json:"expires_at"`
}
