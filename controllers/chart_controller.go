package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/config"
	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/utils"
)

// chartOrder is the one documented listing order: rating-centric, best
// average first, ties broken by newest creation then ascending id so pages
// are fully deterministic.
const chartOrder = "average_rating DESC, created_at DESC, id ASC"

// ChartController serves the public, paginated, genre-filterable chart
// feed over approved tracks.
type ChartController struct {
	db *gorm.DB
}

// NewChartController creates a new ChartController instance.
func NewChartController(db *gorm.DB) *ChartController {
	return &ChartController{db: db}
}

// ListCharts returns one page of the chart feed.
func (c *ChartController) ListCharts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	genre := strings.TrimSpace(strings.ToLower(ctx.Query("genre")))
	if genre == "all" {
		genre = ""
	}

	cacheKey := fmt.Sprintf("cache:charts:genre=%s:page=%d:size=%d", genre, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	query := c.db.Model(&models.Track{}).Where("approved = ?", true)
	if genre != "" {
		query = query.Where("genre = ?", genre)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to count tracks")
		return
	}

	var tracks []models.Track
	if err := query.Order(chartOrder).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tracks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list charts")
		return
	}

	payload := gin.H{
		"items": tracks,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// parsePagination clamps page size to the configured maximum; a page past
// the end of the result set simply yields an empty page.
func parsePagination(pageStr, sizeStr string) (int, int) {
	maxSize := config.Get().ChartPageSizeMax
	page := 1
	pageSize := 20
	if pageSize > maxSize {
		pageSize = maxSize
	}
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
		pageSize = s
		if pageSize > maxSize {
			pageSize = maxSize
		}
	}
	return page, pageSize
}
