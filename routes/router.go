package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/config"
	"github.com/beatchart/beatchart/controllers"
	"github.com/beatchart/beatchart/middleware"
	"github.com/beatchart/beatchart/storage"
	"github.com/beatchart/beatchart/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.Store) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.AdminSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	trackController := controllers.NewTrackController(db, store)
	chartController := controllers.NewChartController(db)
	voteController := controllers.NewVoteController(db)
	winnerController := controllers.NewWinnerController(db)
	adminController := controllers.NewAdminController(db, store)

	api := r.Group("/api/v1")

	// Public chart surface
	api.GET("/charts", chartController.ListCharts)
	api.GET("/tracks/:id", trackController.GetTrack)
	api.GET("/winners", winnerController.ListWinners)

	// Write endpoints sit behind the per-IP rate limiter
	limited := api.Group("")
	limited.Use(middleware.RateLimitMiddleware())
	limited.POST("/tracks", trackController.Upload)
	limited.POST("/tracks/:id/vote", voteController.Vote)
	limited.POST("/tracks/:id/play", voteController.Play)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.POST("/tokens", adminController.IssueToken)
	admin.GET("/tracks", adminController.ListTracks)
	admin.PUT("/tracks/:id/approve", adminController.SetApproval(true))
	admin.PUT("/tracks/:id/unapprove", adminController.SetApproval(false))
	admin.DELETE("/tracks/:id", adminController.DeleteTrack)
	admin.POST("/winners/finalize", winnerController.Finalize)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
