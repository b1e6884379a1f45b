package model

import "time"

// UsagePeriod is the per-user, per-calendar-month usage accumulator.
// Exactly one row exists per (user_id, month_year); rows are created lazily
// on first use in a month and never deleted.
type UsagePeriod struct {
	UserID             string    `db:"user_id" json:"user_id"`
	MonthYear          string    `db:"month_year" json:"month_year"` // "YYYY-MM"
	CharactersUsed     int       `db:"characters_used" json:"characters_used"`
	APICalls           int       `db:"api_calls" json:"api_calls"`
	ArtifactsGenerated int       `db:"artifacts_generated" json:"artifacts_generated"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CurrentMonth returns the usage period key for t, e.g. "2026-09".
func CurrentMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}
