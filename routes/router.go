package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/controllers"
	"github.com/focuspocus/focuspocus/middleware"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *services.Container) *gin.Engine {
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
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Monitor())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", middleware.MetricsHandler(cfg.MetricsUser, cfg.MetricsPass))

	authController := controllers.NewAuthController(db, svc)
	assignmentController := controllers.NewAssignmentController(db, svc)
	sessionController := controllers.NewSessionController(db, svc)
	noteController := controllers.NewNoteController(db, svc)
	reminderController := controllers.NewReminderController(db, svc)
	gamificationController := controllers.NewGamificationController(db, svc)
	recommendationController := controllers.NewRecommendationController(svc)
	dashboardController := controllers.NewDashboardController(db)
	canvasController := controllers.NewCanvasController(db, svc)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.GET("/canvas/authorize", middleware.AuthRequired(), authController.CanvasAuthorize)
	authGroup.POST("/canvas/callback", middleware.AuthRequired(), authController.CanvasCallback)
	authGroup.POST("/canvas/token", middleware.AuthRequired(), authController.CanvasToken)
	authGroup.POST("/canvas/disconnect", middleware.AuthRequired(), authController.CanvasDisconnect)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	assignments := protected.Group("/assignments")
	assignments.GET("", assignmentController.List)
	assignments.POST("", assignmentController.Create)
	assignments.POST("/sync", canvasController.SyncAssignments)
	assignments.PATCH("/chunks/:chunkId", assignmentController.UpdateChunk)
	assignments.GET("/:id", assignmentController.Get)
	assignments.PUT("/:id", assignmentController.Update)
	assignments.DELETE("/:id", assignmentController.Delete)
	assignments.POST("/:id/chunks", assignmentController.SetChunks)
	assignments.POST("/:id/chunks/auto", assignmentController.AutoChunks)

	sessions := protected.Group("/sessions")
	sessions.GET("", sessionController.List)
	sessions.POST("", sessionController.Create)
	sessions.GET("/stats/summary", sessionController.StatsSummary)
	sessions.GET("/:id", sessionController.Get)
	sessions.PATCH("/:id/complete", sessionController.Complete)

	notes := protected.Group("/notes")
	notes.GET("", noteController.List)
	notes.POST("", noteController.Create)
	notes.GET("/templates/:type", noteController.Template)
	notes.GET("/:id", noteController.Get)
	notes.PUT("/:id", noteController.Update)
	notes.DELETE("/:id", noteController.Delete)

	reminders := protected.Group("/reminders")
	reminders.GET("", reminderController.List)
	reminders.POST("", reminderController.Create)
	reminders.POST("/auto-assignments", reminderController.AutoAssignments)
	reminders.PUT("/:id", reminderController.Update)
	reminders.DELETE("/:id", reminderController.Delete)
	reminders.PATCH("/:id/sent", reminderController.MarkSent)

	gamification := protected.Group("/gamification")
	gamification.GET("/badges", gamificationController.Badges)
	gamification.GET("/streaks", gamificationController.Streaks)
	gamification.GET("/dashboard", gamificationController.Dashboard)

	protected.GET("/recommendations", recommendationController.List)
	protected.POST("/fix/streaks", recommendationController.FixStreaks)
	protected.GET("/dashboard", dashboardController.Get)

	canvas := protected.Group("/canvas")
	canvas.GET("/user", canvasController.User)
	canvas.GET("/courses", canvasController.Courses)
	canvas.GET("/assignments", canvasController.Assignments)
	canvas.GET("/announcements", canvasController.Announcements)

	protected.POST("/sync/canvas", canvasController.FullSync)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
