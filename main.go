package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/middleware"
	"github.com/focuspocus/focuspocus/routes"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase()

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	services.RegisterMetrics(prometheus.DefaultRegisterer)

	svc := services.NewContainer(db, utils.Logger, services.CanvasSettings{
		BaseURL:      cfg.CanvasBaseURL,
		ClientID:     cfg.CanvasClientID,
		ClientSecret: cfg.CanvasClientSecret,
		RedirectURI:  cfg.CanvasRedirectURI,
	})
	if svc.CanvasOAuth == nil {
		utils.Sugar.Warn("Canvas OAuth client not configured; only personal access tokens can connect Canvas")
	}

	r := routes.SetupRouter(db, svc)

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	closeRedis := func() {
		if rc := utils.GetRedis(); rc != nil {
			_ = rc.Close()
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeRedis, closeDB); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
	_ = utils.Logger.Sync()
}
