package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// CanvasController proxies read-only Canvas data for the connected user.
type CanvasController struct {
	db  *gorm.DB
	svc *services.Container
}

// NewCanvasController creates a CanvasController.
func NewCanvasController(db *gorm.DB, svc *services.Container) *CanvasController {
	return &CanvasController{db: db, svc: svc}
}

func canvasCacheKey(userID uint, kind string) string {
	return fmt.Sprintf("cache:canvas:%d:%s", userID, kind)
}

// canvasFor loads the caller's Canvas client. It writes the error response itself.
func canvasFor(ctx *gin.Context, db *gorm.DB, svc *services.Container) (uint, services.CanvasAPI, bool) {
	userID, ok := requireUser(ctx)
	if !ok {
		return 0, nil, false
	}
	var user models.User
	if err := db.Select("id", "canvas_token", "canvas_instance_url").First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return 0, nil, false
	}
	if !user.HasCanvasConnection() || user.CanvasInstanceURL == "" {
		utils.Error(ctx, http.StatusBadRequest, 40060, "Canvas not connected. Please connect Canvas first.")
		return 0, nil, false
	}
	return userID, svc.Canvas(ctx.Request.Context(), user.CanvasInstanceURL, user.CanvasToken), true
}

func (c *CanvasController) courses(ctx *gin.Context, userID uint, api services.CanvasAPI) ([]services.CanvasCourse, error) {
	key := canvasCacheKey(userID, "courses")
	var cached []services.CanvasCourse
	if utils.CacheGetJSON(key, &cached) {
		return cached, nil
	}
	courses, err := api.Courses(ctx.Request.Context())
	if err != nil {
		return nil, err
	}
	utils.CacheSetJSON(key, courses, 0)
	return courses, nil
}

// Courses lists the user's Canvas courses.
func (c *CanvasController) Courses(ctx *gin.Context) {
	userID, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	courses, err := c.courses(ctx, userID, api)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"courses": courses})
}

// User returns the Canvas profile.
func (c *CanvasController) User(ctx *gin.Context) {
	_, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	u, err := api.CurrentUser(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50211, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"user": u})
}

// Assignments lists assignments across all Canvas courses.
func (c *CanvasController) Assignments(ctx *gin.Context) {
	_, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	items, err := api.AllAssignments(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50212, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"assignments": items})
}

// Announcements lists announcements of every course.
func (c *CanvasController) Announcements(ctx *gin.Context) {
	userID, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	courses, err := c.courses(ctx, userID, api)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50213, err.Error())
		return
	}
	ids := make([]int64, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}
	items, err := api.Announcements(ctx.Request.Context(), ids)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50214, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"announcements": items})
}

// SyncAssignments imports Canvas assignments into the local store.
func (c *CanvasController) SyncAssignments(ctx *gin.Context) {
	userID, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	res, err := c.svc.Sync.Sync(ctx.Request.Context(), userID, api)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50215, err.Error())
		return
	}
	utils.Success(ctx, gin.H{
		"message":      "Sync completed",
		"synced":       res.Synced,
		"updated":      res.Updated,
		"total":        res.Total,
		"errors":       res.Errors,
		"errorDetails": res.ErrorDetails,
	})
}

// FullSync imports assignments and returns courses and announcements in one round trip.
func (c *CanvasController) FullSync(ctx *gin.Context) {
	userID, api, ok := canvasFor(ctx, c.db, c.svc)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	courses, err := c.courses(ctx, userID, api)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50216, err.Error())
		return
	}
	ids := make([]int64, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}

	var (
		assignments   []services.CanvasAssignment
		announcements []services.CanvasAnnouncement
	)
	g, gctx := errgroup.WithContext(reqCtx)
	g.Go(func() error {
		var err error
		assignments, err = api.AllAssignments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		announcements, err = api.Announcements(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50217, err.Error())
		return
	}

	res := c.svc.Sync.Import(reqCtx, userID, assignments)
	c.svc.Activity.Log(reqCtx, userID, "canvas_synced", services.EntityUser, &userID, map[string]interface{}{
		"synced":             res.Synced,
		"updated":            res.Updated,
		"coursesCount":       len(courses),
		"assignmentsCount":   len(assignments),
		"announcementsCount": len(announcements),
	})

	utils.Success(ctx, gin.H{
		"message": "Canvas sync completed successfully",
		"sync": gin.H{
			"assignments":   res,
			"courses":       len(courses),
			"announcements": len(announcements),
		},
		"data": gin.H{
			"courses":       courses,
			"assignments":   assignments,
			"announcements": announcements,
		},
	})
}
