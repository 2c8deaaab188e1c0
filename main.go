package main

import (
	"context"

	"github.com/beatchart/beatchart/config"
	"github.com/beatchart/beatchart/controllers"
	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/routes"
	"github.com/beatchart/beatchart/storage"
	"github.com/beatchart/beatchart/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.Track{}, &models.UploadToken{}, &models.Vote{}, &models.Winner{})

	store, err := storage.NewMinioStore(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("object storage init failed: %v", err)
	}

	r := routes.SetupRouter(db, store)

	// Finalize last month's winner shortly after each month rolls over
	controllers.StartWinnerScheduler(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
