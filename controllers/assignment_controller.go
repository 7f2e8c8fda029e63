package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

// AssignmentController manages assignments and their chunks.
type AssignmentController struct {
	db  *gorm.DB
	svc *services.Container
	now func() time.Time
}

// NewAssignmentController creates an AssignmentController.
func NewAssignmentController(db *gorm.DB, svc *services.Container) *AssignmentController {
	return &AssignmentController{db: db, svc: svc, now: time.Now}
}

func orderedChunks(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func (a *AssignmentController) find(ctx *gin.Context, userID, id uint) (*models.Assignment, bool) {
	var assignment models.Assignment
	err := a.db.WithContext(ctx.Request.Context()).Where("id = ? AND user_id = ?", id, userID).First(&assignment).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40410, "Assignment not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load assignment")
		}
		return nil, false
	}
	return &assignment, true
}

// List returns the caller's assignments ordered by due date.
func (a *AssignmentController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	q := a.db.WithContext(ctx.Request.Context()).Where("user_id = ?", userID)
	if status := strings.TrimSpace(ctx.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if courseID := strings.TrimSpace(ctx.Query("courseId")); courseID != "" {
		q = q.Where("course_id = ?", courseID)
	}
	if ctx.Query("upcoming") == "true" {
		q = q.Where("due_date >= ?", a.now().UTC())
	}

	var assignments []models.Assignment
	if err := q.Preload("Chunks", orderedChunks).Order("due_date ASC").Find(&assignments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list assignments")
		return
	}
	utils.Success(ctx, gin.H{"assignments": assignments})
}

// Get returns one assignment with its chunks and the ten latest sessions.
func (a *AssignmentController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var assignment models.Assignment
	err := a.db.WithContext(ctx.Request.Context()).
		Preload("Chunks", orderedChunks).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("started_at DESC").Limit(10) }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&assignment).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40410, "Assignment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load assignment")
		return
	}
	utils.Success(ctx, gin.H{"assignment": assignment})
}

// Create adds a manual assignment.
func (a *AssignmentController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		DueDate          string `json:"dueDate"`
		ExpectedDuration *int   `json:"expectedDuration"`
		CourseID         string `json:"courseId"`
		CourseName       string `json:"courseName"`
		Priority         string `json:"priority"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40011, "Title is required")
		return
	}
	due, err := parseTimePtr(req.DueDate)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid dueDate")
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	if !validPriority(priority) {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid priority")
		return
	}
	if req.ExpectedDuration != nil && *req.ExpectedDuration <= 0 {
		req.ExpectedDuration = nil
	}

	assignment := models.Assignment{
		UserID:           userID,
		Title:            utils.SanitizeText(title),
		Description:      utils.Sanitize(req.Description),
		DueDate:          due,
		ExpectedDuration: req.ExpectedDuration,
		CourseID:         req.CourseID,
		CourseName:       utils.SanitizeText(req.CourseName),
		Priority:         priority,
		Status:           models.AssignmentPending,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&assignment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to create assignment")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), userID, "assignment_created", services.EntityAssignment, &assignment.ID, nil)
	utils.Created(ctx, gin.H{"assignment": assignment})
}

// Update applies a partial update. Moving into completed records the completion,
// advances the assignment_completion streak and evaluates badges.
func (a *AssignmentController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Title            *string `json:"title"`
		Description      *string `json:"description"`
		DueDate          *string `json:"dueDate"`
		ExpectedDuration *int    `json:"expectedDuration"`
		Status           *string `json:"status"`
		Priority         *string `json:"priority"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}
	assignment, ok := a.find(ctx, userID, id)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40011, "Title is required")
			return
		}
		updates["title"] = utils.SanitizeText(title)
	}
	if req.Description != nil {
		updates["description"] = utils.Sanitize(*req.Description)
	}
	if req.DueDate != nil {
		due, err := parseTimePtr(*req.DueDate)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40012, "invalid dueDate")
			return
		}
		updates["due_date"] = due
	}
	if req.ExpectedDuration != nil {
		updates["expected_duration"] = *req.ExpectedDuration
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			utils.Error(ctx, http.StatusBadRequest, 40013, "invalid priority")
			return
		}
		updates["priority"] = *req.Priority
	}

	completing := false
	if req.Status != nil {
		if !validAssignmentStatus(*req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40014, "invalid status")
			return
		}
		updates["status"] = *req.Status
		if *req.Status == models.AssignmentCompleted && assignment.Status != models.AssignmentCompleted {
			completing = true
			updates["completed_at"] = a.now().UTC()
		}
	}

	reqCtx := ctx.Request.Context()
	if len(updates) > 0 {
		if err := a.db.WithContext(reqCtx).Model(assignment).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update assignment")
			return
		}
	}

	if completing {
		a.svc.Streaks.UpdateSafely(reqCtx, userID, models.StreakAssignmentCompletion)
		a.svc.Activity.Log(reqCtx, userID, string(models.ActionAssignmentCompleted), services.EntityAssignment, &assignment.ID, map[string]interface{}{
			"title": assignment.Title,
		})
		a.svc.Badges.CheckSafely(reqCtx, userID, models.ActionAssignmentCompleted, nil)
	}
	var status interface{}
	if req.Status != nil {
		status = *req.Status
	}
	a.svc.Activity.Log(reqCtx, userID, "assignment_updated", services.EntityAssignment, &assignment.ID, map[string]interface{}{"status": status})

	var updated models.Assignment
	if err := a.db.WithContext(reqCtx).Preload("Chunks", orderedChunks).First(&updated, assignment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load assignment")
		return
	}
	utils.Success(ctx, gin.H{"assignment": updated})
}

// Delete removes an assignment and its chunks.
func (a *AssignmentController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	assignment, ok := a.find(ctx, userID, id)
	if !ok {
		return
	}
	err := a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.AssignmentChunk{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.StudySession{}).Where("assignment_id = ?", assignment.ID).Update("assignment_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.Reminder{}).Error; err != nil {
			return err
		}
		return tx.Delete(assignment).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete assignment")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), userID, "assignment_deleted", services.EntityAssignment, &assignment.ID, nil)
	utils.Success(ctx, gin.H{"message": "Assignment deleted successfully"})
}

type chunkInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Order       int    `json:"order"`
}

func (a *AssignmentController) replaceChunks(ctx *gin.Context, assignmentID uint, chunks []models.AssignmentChunk) error {
	return a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.AssignmentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
}

// SetChunks replaces all chunks of an assignment with the supplied list.
func (a *AssignmentController) SetChunks(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Chunks []chunkInput `json:"chunks"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Chunks) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40015, "Chunks array is required")
		return
	}
	assignment, ok := a.find(ctx, userID, id)
	if !ok {
		return
	}

	chunks := make([]models.AssignmentChunk, 0, len(req.Chunks))
	for i, in := range req.Chunks {
		title := strings.TrimSpace(in.Title)
		if title == "" || in.Duration <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40016, "each chunk needs a title and a positive duration")
			return
		}
		order := in.Order
		if order == 0 {
			order = i
		}
		chunks = append(chunks, models.AssignmentChunk{
			AssignmentID: assignment.ID,
			Title:        utils.SanitizeText(title),
			Description:  utils.SanitizeText(in.Description),
			Duration:     in.Duration,
			Order:        order,
			Status:       models.AssignmentPending,
		})
	}
	if err := a.replaceChunks(ctx, assignment.ID, chunks); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to save chunks")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), userID, "chunks_created", services.EntityAssignment, &assignment.ID, map[string]interface{}{
		"chunkCount": len(chunks),
	})
	utils.Success(ctx, gin.H{"message": "Chunks created successfully", "count": len(chunks), "chunks": chunks})
}

// AutoChunks splits the expected duration into pomodoro-sized chunks.
func (a *AssignmentController) AutoChunks(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		ChunkDuration int `json:"chunkDuration"`
	}
	// an empty body means the default size
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
			return
		}
	}
	if req.ChunkDuration <= 0 {
		req.ChunkDuration = services.DefaultChunkMinutes
	}
	assignment, ok := a.find(ctx, userID, id)
	if !ok {
		return
	}
	if assignment.ExpectedDuration == nil || *assignment.ExpectedDuration <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40017, "Assignment must have expected duration to auto-generate chunks")
		return
	}

	chunks, err := services.SplitIntoChunks(assignment.ID, *assignment.ExpectedDuration, req.ChunkDuration)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40017, err.Error())
		return
	}
	if err := a.replaceChunks(ctx, assignment.ID, chunks); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to save chunks")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), userID, "chunks_auto_generated", services.EntityAssignment, &assignment.ID, map[string]interface{}{
		"chunkCount":    len(chunks),
		"chunkDuration": req.ChunkDuration,
	})
	utils.Success(ctx, gin.H{"message": "Chunks auto-generated successfully", "chunks": chunks})
}

// UpdateChunk changes the status of one chunk owned by the caller.
func (a *AssignmentController) UpdateChunk(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	chunkID, ok := idParam(ctx, "chunkId")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40018, "status is required")
		return
	}
	switch req.Status {
	case models.AssignmentPending, models.AssignmentInProgress, models.AssignmentCompleted:
	default:
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid status")
		return
	}

	reqCtx := ctx.Request.Context()
	var chunk models.AssignmentChunk
	err := a.db.WithContext(reqCtx).
		Joins("JOIN assignments ON assignments.id = assignment_chunks.assignment_id").
		Where("assignment_chunks.id = ? AND assignments.user_id = ?", chunkID, userID).
		First(&chunk).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40411, "Chunk not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load chunk")
		return
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == models.AssignmentCompleted {
		updates["completed_at"] = a.now().UTC()
	}
	if err := a.db.WithContext(reqCtx).Model(&chunk).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to update chunk")
		return
	}
	a.svc.Activity.Log(reqCtx, userID, "chunk_updated", services.EntityAssignment, &chunk.AssignmentID, map[string]interface{}{"status": req.Status})
	utils.Success(ctx, gin.H{"chunk": chunk})
}
