package models

import "time"

// Winner records the winning track of one calendar month. Period is the
// month identifier ("2006-01"). Fields are denormalized at selection time
// so later votes or deletions cannot rewrite history. One row per period;
// re-finalizing a period replaces its row.
type Winner struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Period         string    `gorm:"size:7;uniqueIndex;not null" json:"period"`
	TrackID        uint      `gorm:"index;not null" json:"track_id"`
	Artist         string    `gorm:"size:128;not null" json:"artist"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Genre          string    `gorm:"size:32" json:"genre"`
	CompositeScore float64   `gorm:"not null" json:"composite_score"`
	AverageRating  float64   `gorm:"not null" json:"average_rating"`
	VoteCount      int64     `gorm:"not null" json:"vote_count"`
	PlayCount      int64     `gorm:"not null" json:"play_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
