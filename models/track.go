package models

import "time"

// DefaultArtworkURL is served when an upload carries no artwork or the
// artwork blob failed to store.
const DefaultArtworkURL = "/static/img/artwork_placeholder.png"

// Track represents an uploaded audio track together with its running
// aggregate statistics. AverageRating is always the arithmetic mean of all
// scores ever cast; VoteCount is the number of accepted votes. The pair is
// only ever updated together through a compare-and-swap on VoteCount.
type Track struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Artist        string    `gorm:"size:128;not null" json:"artist"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Genre         string    `gorm:"size:32;index;not null" json:"genre"`
	Description   string    `gorm:"type:text" json:"description"`
	AudioURL      string    `gorm:"size:1024;not null" json:"audio_url"`
	AudioKey      string    `gorm:"size:255" json:"-"`
	PreviewURL    string    `gorm:"size:1024" json:"preview_url"`
	ArtworkURL    string    `gorm:"size:1024" json:"artwork_url"`
	ArtworkKey    string    `gorm:"size:255" json:"-"`
	OwnerEmail    string    `gorm:"size:255;index;not null" json:"-"`
	AllowDownload bool      `gorm:"default:false" json:"allow_download"`
	// No column default: a false value must survive the insert, and gorm
	// drops zero-valued fields that carry a default tag.
	Approved      bool      `gorm:"index;not null" json:"approved"`
	PlayCount     int64     `gorm:"not null;default:0" json:"play_count"`
	VoteCount     int64     `gorm:"not null;default:0" json:"vote_count"`
	AverageRating float64   `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CompositeScore ranks winner candidates: consensus quality weighted by
// volume, plus raw popularity. A track with zero votes can still place via
// plays alone.
func (t *Track) CompositeScore() float64 {
	return t.AverageRating*float64(t.VoteCount) + float64(t.PlayCount)
}
