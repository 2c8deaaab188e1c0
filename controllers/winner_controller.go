package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/utils"
)

// periodLayout is the calendar-month identifier format.
const periodLayout = "2006-01"

// WinnerController finalizes and lists monthly winners.
type WinnerController struct {
	db *gorm.DB
}

// NewWinnerController creates a new WinnerController instance.
func NewWinnerController(db *gorm.DB) *WinnerController {
	return &WinnerController{db: db}
}

// Finalize computes the winner for a period (default: the current month).
// Administrative endpoint; re-finalizing a period replaces its record.
func (w *WinnerController) Finalize(ctx *gin.Context) {
	var req struct {
		Period string `json:"period"`
	}
	// Body is optional; ignore bind errors for an empty body.
	_ = ctx.ShouldBindJSON(&req)

	period := strings.TrimSpace(req.Period)
	if period == "" {
		period = time.Now().Format(periodLayout)
	} else if _, err := time.Parse(periodLayout, period); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "period must look like 2006-01")
		return
	}

	winner, err := FinalizeWinner(w.db, period)
	switch {
	case err == nil:
	case errors.Is(err, errNoEligibleTracks):
		utils.Error(ctx, http.StatusNotFound, 40450, "no eligible tracks")
		return
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to finalize winner")
		return
	}

	utils.Success(ctx, gin.H{"winner": winner})
}

// ListWinners returns past winners, newest period first.
func (w *WinnerController) ListWinners(ctx *gin.Context) {
	var winners []models.Winner
	if err := w.db.Order("period DESC").Limit(60).Find(&winners).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list winners")
		return
	}
	utils.Success(ctx, gin.H{"items": winners})
}

// FinalizeWinner selects the approved track with the highest composite
// score (averageRating*voteCount + playCount), ties going to the higher
// vote count, then the earlier creation time, then the lower id. The
// winner row is upserted on the unique period column, so repeated
// finalization of the same period without intervening votes is idempotent.
func FinalizeWinner(db *gorm.DB, period string) (*models.Winner, error) {
	var track models.Track
	err := db.Where("approved = ?", true).
		Order("(average_rating * vote_count + play_count) DESC, vote_count DESC, created_at ASC, id ASC").
		First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoEligibleTracks
		}
		return nil, err
	}

	winner := models.Winner{
		Period:         period,
		TrackID:        track.ID,
		Artist:         track.Artist,
		Title:          track.Title,
		Genre:          track.Genre,
		CompositeScore: track.CompositeScore(),
		AverageRating:  track.AverageRating,
		VoteCount:      track.VoteCount,
		PlayCount:      track.PlayCount,
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"track_id", "artist", "title", "genre",
			"composite_score", "average_rating", "vote_count", "play_count",
			"updated_at",
		}),
	}).Create(&winner).Error
	if err != nil {
		return nil, err
	}

	// Reload so the caller sees the stored row even on the update path.
	var stored models.Winner
	if err := db.Where("period = ?", period).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// StartWinnerScheduler launches a background goroutine that finalizes the
// just-ended month shortly after each month boundary. Best-effort: a failed
// run is logged and retried at the next boundary (or manually via the
// admin endpoint).
func StartWinnerScheduler(db *gorm.DB) {
	go func() {
		for {
			now := time.Now()
			// Five minutes past midnight on the 1st, local time.
			next := time.Date(now.Year(), now.Month(), 1, 0, 5, 0, 0, now.Location()).AddDate(0, 1, 0)
			time.Sleep(time.Until(next))

			period := next.AddDate(0, -1, 0).Format(periodLayout)
			if _, err := FinalizeWinner(db, period); err != nil {
				if errors.Is(err, errNoEligibleTracks) {
					utils.Sugar.Infof("no eligible tracks for period %s", period)
				} else {
					utils.Sugar.Errorf("scheduled winner finalization failed period=%s: %v", period, err)
				}
				continue
			}
			utils.Sugar.Infof("winner finalized for period %s", period)
		}
	}()
}
