package controllers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

const maxNoteTags = 20

var noteTypes = []string{"general", "lecture", "cheatsheet", "assignment"}

type noteTemplate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var noteTemplates = map[string]noteTemplate{
	"lecture": {
		Title: "Lecture Notes Template",
		Content: `# Lecture Notes: [Topic]

## Date: [Date]
## Course: [Course Name]

### Key Concepts
-
-
-

### Important Points
1.
2.
3.

### Questions/Clarifications
-
-

### Summary
[Your summary here]
`,
	},
	"cheatsheet": {
		Title: "Exam Cheatsheet Template",
		Content: `# Cheatsheet: [Topic]

## Key Formulas
-
-

## Important Definitions
-
-

## Common Mistakes to Avoid
-
-

## Quick Reference
-
-
`,
	},
	"assignment": {
		Title: "Assignment Planning Template",
		Content: `# Assignment: [Title]

## Due Date: [Date]
## Estimated Duration: [Time]

### Requirements
-
-

### Plan
1.
2.
3.

### Resources Needed
-
-

### Notes
[Your notes here]
`,
	},
}

// NoteController manages notes.
type NoteController struct {
	db  *gorm.DB
	svc *services.Container
}

// NewNoteController creates a NoteController.
func NewNoteController(db *gorm.DB, svc *services.Container) *NoteController {
	return &NoteController{db: db, svc: svc}
}

func cleanTags(tags []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = utils.SanitizeText(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
		if len(out) == maxNoteTags {
			break
		}
	}
	return datatypes.JSONSlice[string](out)
}

func (n *NoteController) find(ctx *gin.Context, userID, id uint) (*models.Note, bool) {
	var note models.Note
	err := n.db.WithContext(ctx.Request.Context()).Where("id = ? AND user_id = ?", id, userID).First(&note).Error
	if err != nil {
		if isNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40430, "Note not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load note")
		}
		return nil, false
	}
	return &note, true
}

// List returns notes, most recently edited first. Filters: type, courseId, tag.
func (n *NoteController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	q := n.db.WithContext(ctx.Request.Context()).Where("user_id = ?", userID)
	if typ := strings.TrimSpace(ctx.Query("type")); typ != "" {
		q = q.Where("type = ?", typ)
	}
	if courseID := strings.TrimSpace(ctx.Query("courseId")); courseID != "" {
		q = q.Where("course_id = ?", courseID)
	}
	var notes []models.Note
	if err := q.Order("updated_at DESC").Find(&notes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list notes")
		return
	}
	// tags live in a JSON column whose query syntax differs per driver
	if tag := strings.TrimSpace(ctx.Query("tag")); tag != "" {
		notes = slices.DeleteFunc(notes, func(note models.Note) bool {
			return !slices.Contains([]string(note.Tags), tag)
		})
	}
	utils.Success(ctx, gin.H{"notes": notes})
}

// Get returns one note.
func (n *NoteController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	note, ok := n.find(ctx, userID, id)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"note": note})
}

// Create stores a new note with sanitized content.
func (n *NoteController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Title      string   `json:"title"`
		Content    string   `json:"content"`
		Type       string   `json:"type"`
		Tags       []string `json:"tags"`
		CourseID   string   `json:"courseId"`
		CourseName string   `json:"courseName"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "Title and content are required")
		return
	}
	typ := req.Type
	if typ == "" {
		typ = "general"
	}
	if !slices.Contains(noteTypes, typ) {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid note type")
		return
	}

	note := models.Note{
		UserID:     userID,
		Title:      utils.SanitizeText(title),
		Content:    utils.Sanitize(req.Content),
		Type:       typ,
		Tags:       cleanTags(req.Tags),
		CourseID:   req.CourseID,
		CourseName: utils.SanitizeText(req.CourseName),
	}
	if err := n.db.WithContext(ctx.Request.Context()).Create(&note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create note")
		return
	}
	n.svc.Activity.Log(ctx.Request.Context(), userID, "note_created", services.EntityNote, &note.ID, map[string]interface{}{"type": typ})
	utils.Created(ctx, gin.H{"note": note})
}

// Update applies a partial update.
func (n *NoteController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Title      *string   `json:"title"`
		Content    *string   `json:"content"`
		Type       *string   `json:"type"`
		Tags       *[]string `json:"tags"`
		CourseID   *string   `json:"courseId"`
		CourseName *string   `json:"courseName"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request body")
		return
	}
	note, ok := n.find(ctx, userID, id)
	if !ok {
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40041, "Title and content are required")
			return
		}
		note.Title = utils.SanitizeText(title)
	}
	if req.Content != nil {
		note.Content = utils.Sanitize(*req.Content)
	}
	if req.Type != nil {
		if !slices.Contains(noteTypes, *req.Type) {
			utils.Error(ctx, http.StatusBadRequest, 40042, "invalid note type")
			return
		}
		note.Type = *req.Type
	}
	if req.Tags != nil {
		note.Tags = cleanTags(*req.Tags)
	}
	if req.CourseID != nil {
		note.CourseID = *req.CourseID
	}
	if req.CourseName != nil {
		note.CourseName = utils.SanitizeText(*req.CourseName)
	}

	if err := n.db.WithContext(ctx.Request.Context()).Save(note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to update note")
		return
	}
	n.svc.Activity.Log(ctx.Request.Context(), userID, "note_updated", services.EntityNote, &note.ID, nil)
	utils.Success(ctx, gin.H{"note": note})
}

// Delete removes a note.
func (n *NoteController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	note, ok := n.find(ctx, userID, id)
	if !ok {
		return
	}
	if err := n.db.WithContext(ctx.Request.Context()).Delete(note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete note")
		return
	}
	n.svc.Activity.Log(ctx.Request.Context(), userID, "note_deleted", services.EntityNote, &note.ID, nil)
	utils.Success(ctx, gin.H{"message": "Note deleted successfully"})
}

// Template returns a starter document. Unknown types fall back to lecture.
func (n *NoteController) Template(ctx *gin.Context) {
	tpl, ok := noteTemplates[ctx.Param("type")]
	if !ok {
		tpl = noteTemplates["lecture"]
	}
	utils.Success(ctx, gin.H{"template": tpl})
}
