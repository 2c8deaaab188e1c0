package models

import "time"

// Score bounds for a vote. Votes outside the closed range are rejected
// before touching the store.
const (
	MinScore = 1
	MaxScore = 10
)

// Vote is the audit record of a single accepted vote. The running average
// on the track is authoritative; these rows exist for reconciliation only
// and are never edited or retracted.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TrackID   uint      `gorm:"index;not null" json:"track_id"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"cast_at"`
}
