package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/utils"
)

// voteRetryLimit bounds the optimistic-retry loop for concurrent votes on
// the same track.
const voteRetryLimit = 5

// VoteController accepts votes and play events and maintains the running
// aggregates on the track row.
type VoteController struct {
	db *gorm.DB
}

// NewVoteController creates a new VoteController instance.
func NewVoteController(db *gorm.DB) *VoteController {
	return &VoteController{db: db}
}

// Vote records a score for a track and returns the updated aggregate.
func (v *VoteController) Vote(ctx *gin.Context) {
	var req struct {
		Score int `json:"score" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	trackID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid track id")
		return
	}

	track, err := recordVote(v.db, trackID, req.Score)
	switch {
	case err == nil:
	case errors.Is(err, errInvalidScore):
		utils.Error(ctx, http.StatusBadRequest, 40042, "score must be between 1 and 10")
		return
	case errors.Is(err, errTrackNotFound):
		utils.Error(ctx, http.StatusNotFound, 40440, "track not found")
		return
	case errors.Is(err, errVoteContention):
		utils.Error(ctx, http.StatusServiceUnavailable, 50340, "track busy, please retry")
		return
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to record vote")
		return
	}

	utils.Success(ctx, gin.H{
		"track_id":       track.ID,
		"vote_count":     track.VoteCount,
		"average_rating": track.AverageRating,
	})
}

// Play increments the play counter for a track.
func (v *VoteController) Play(ctx *gin.Context) {
	trackID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid track id")
		return
	}

	count, err := recordPlay(v.db, trackID)
	switch {
	case err == nil:
	case errors.Is(err, errTrackNotFound):
		utils.Error(ctx, http.StatusNotFound, 40441, "track not found")
		return
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to record play")
		return
	}

	utils.Success(ctx, gin.H{"track_id": trackID, "play_count": count})
}

// recordVote applies one vote using the incremental mean update
//
//	newAverage = (oldAverage*oldCount + score) / (oldCount + 1)
//
// guarded by a compare-and-swap on the previous vote count. A concurrent
// vote that lands between the read and the conditional update makes the
// swap miss; the loop reloads and retries so no vote is ever lost. The
// audit Vote row is written only after the swap succeeded.
func recordVote(db *gorm.DB, trackID uint, score int) (*models.Track, error) {
	if score < models.MinScore || score > models.MaxScore {
		return nil, errInvalidScore
	}

	for attempt := 0; attempt < voteRetryLimit; attempt++ {
		var track models.Track
		if err := db.First(&track, trackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errTrackNotFound
			}
			return nil, err
		}

		newCount := track.VoteCount + 1
		newAvg := (track.AverageRating*float64(track.VoteCount) + float64(score)) / float64(newCount)

		res := db.Model(&models.Track{}).
			Where("id = ? AND vote_count = ?", trackID, track.VoteCount).
			Updates(map[string]interface{}{"vote_count": newCount, "average_rating": newAvg})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			if err := db.Create(&models.Vote{TrackID: trackID, Score: score}).Error; err != nil && utils.Sugar != nil {
				// Aggregate already committed; the audit row is
				// reconcilable from logs.
				utils.Sugar.Warnf("vote audit row failed track=%d: %v", trackID, err)
			}
			track.VoteCount = newCount
			track.AverageRating = newAvg
			return &track, nil
		}
		// Lost the swap to a concurrent vote; reload and retry.
	}
	return nil, errVoteContention
}

// recordPlay bumps play_count by one inside the database so concurrent
// plays cannot clobber each other, then reads the fresh value back.
func recordPlay(db *gorm.DB, trackID uint) (int64, error) {
	res := db.Model(&models.Track{}).
		Where("id = ?", trackID).
		UpdateColumn("play_count", gorm.Expr("play_count + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, errTrackNotFound
	}

	var track models.Track
	if err := db.Select("play_count").First(&track, trackID).Error; err != nil {
		return 0, err
	}
	return track.PlayCount, nil
}
