package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/storage"
	"github.com/beatchart/beatchart/utils"
)

// AdminController handles token issuance and track moderation. All routes
// sit behind the shared-secret middleware.
type AdminController struct {
	db    *gorm.DB
	store storage.Store
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB, store storage.Store) *AdminController {
	return &AdminController{db: db, store: store}
}

// IssueToken creates a single-use upload token for an artist and mails the
// secret. Mail delivery is best-effort; the token exists either way and is
// returned in the response for manual delivery.
func (a *AdminController) IssueToken(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "a valid email is required")
		return
	}

	token := models.UploadToken{
		Email:  strings.TrimSpace(req.Email),
		Secret: uuid.NewString(),
	}
	if err := a.db.Create(&token).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to create token")
		return
	}

	go func(email, secret string) {
		if err := utils.SendUploadTokenMail(email, secret); err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("token mail to %s failed: %v", email, err)
		}
	}(token.Email, token.Secret)

	utils.Success(ctx, gin.H{
		"token_id": token.ID,
		"email":    token.Email,
		"secret":   token.Secret,
	})
}

// ListTracks returns all tracks including unapproved ones.
func (a *AdminController) ListTracks(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := a.db.Model(&models.Track{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to count tracks")
		return
	}

	var tracks []models.Track
	if err := a.db.Order("created_at DESC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tracks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to list tracks")
		return
	}

	utils.Success(ctx, gin.H{
		"items": tracks,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// SetApproval shows or hides a track in the public chart feed.
func (a *AdminController) SetApproval(approved bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := parseID(ctx.Param("id"))
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40061, "invalid track id")
			return
		}

		res := a.db.Model(&models.Track{}).Where("id = ?", id).Update("approved", approved)
		if res.Error != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to update track")
			return
		}
		if res.RowsAffected == 0 {
			utils.Error(ctx, http.StatusNotFound, 40460, "track not found")
			return
		}

		utils.InvalidateByPrefix("cache:charts:")
		utils.Success(ctx, gin.H{"track_id": id, "approved": approved})
	}
}

// DeleteTrack removes a track row and releases its blobs. The row goes
// first so the public surface stops referencing the track even if blob
// removal fails; leftover blobs are logged for cleanup.
func (a *AdminController) DeleteTrack(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid track id")
		return
	}

	var track models.Track
	if err := a.db.First(&track, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40461, "track not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to load track")
		return
	}

	if err := a.db.Delete(&track).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to delete track")
		return
	}

	for _, key := range []string{track.AudioKey, track.ArtworkKey} {
		if key == "" {
			continue
		}
		if err := a.store.Remove(ctx.Request.Context(), key); err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("blob release failed key=%s track=%d: %v", key, track.ID, err)
		}
	}

	utils.InvalidateByPrefix("cache:charts:")
	utils.Success(ctx, gin.H{"message": "track deleted"})
}
