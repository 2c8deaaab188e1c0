package models

import "time"

// UploadToken is a single-use admission token that authorizes exactly one
// track upload for the given email. Rows are never deleted; used tokens
// stay behind as an audit trail.
type UploadToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"size:255;index:idx_tokens_email_secret;not null" json:"email"`
	Secret    string     `gorm:"size:64;index:idx_tokens_email_secret;not null" json:"-"`
	Used      bool       `gorm:"not null;default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
