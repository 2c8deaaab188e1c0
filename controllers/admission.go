package controllers

import (
	"time"

	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
)

// admitToken returns the unused token matching (email, secret) exactly.
// The comparison happens in Go because MySQL's default collation is
// case-insensitive; admission requires a byte-exact, unnormalized match.
// Validation never mutates the token.
func admitToken(db *gorm.DB, email, secret string) (*models.UploadToken, error) {
	var candidates []models.UploadToken
	if err := db.Where("email = ? AND used = ?", email, false).Find(&candidates).Error; err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Email == email && candidates[i].Secret == secret {
			return &candidates[i], nil
		}
	}
	return nil, errTokenInvalid
}

// consumeToken atomically flips used from false to true. The conditional
// update is the single point that serializes concurrent uploads racing on
// the same token: whichever request's UPDATE reports an affected row owns
// the token, every other request gets errTokenAlreadyUsed.
func consumeToken(db *gorm.DB, tokenID uint) error {
	now := time.Now()
	res := db.Model(&models.UploadToken{}).
		Where("id = ? AND used = ?", tokenID, false).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errTokenAlreadyUsed
	}
	return nil
}
