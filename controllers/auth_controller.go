package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focuspocus/focuspocus/config"
	"github.com/focuspocus/focuspocus/middleware"
	"github.com/focuspocus/focuspocus/models"
	"github.com/focuspocus/focuspocus/services"
	"github.com/focuspocus/focuspocus/utils"
)

const canvasStateTTL = 10 * time.Minute

// AuthController handles accounts, tokens and the Canvas connection.
type AuthController struct {
	db  *gorm.DB
	svc *services.Container
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, svc *services.Container) *AuthController {
	return &AuthController{db: db, svc: svc}
}

type userResponse struct {
	ID                  uint      `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	CanvasUserID        string    `json:"canvasUserId,omitempty"`
	CanvasInstanceURL   string    `json:"canvasInstanceUrl,omitempty"`
	HasCanvasConnection bool      `json:"hasCanvasConnection"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		CanvasUserID:        u.CanvasUserID,
		CanvasInstanceURL:   u.CanvasInstanceURL,
		HasCanvasConnection: u.HasCanvasConnection(),
		CreatedAt:           u.CreatedAt,
	}
}

func (a *AuthController) issueToken(u models.User) (string, error) {
	ttl := time.Duration(config.Get().TokenTTLHours) * time.Hour
	return utils.GenerateToken(u.ID, u.Email, ttl)
}

// Register creates a local account and logs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6,max=72"`
		Name     string `json:"name" binding:"max=128"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "email and password are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check user")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "user already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{Email: email, PasswordHash: hash, Name: utils.SanitizeText(strings.TrimSpace(req.Name))}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), user.ID, "user_registered", services.EntityUser, &user.ID, nil)

	token, err := a.issueToken(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Created(ctx, gin.H{"user": toUserResponse(user), "token": token})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "email and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}

	token, err := a.issueToken(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	a.svc.Activity.Log(ctx.Request.Context(), user.ID, "user_logged_in", services.EntityUser, &user.ID, nil)

	utils.Success(ctx, gin.H{"token": token, "user": toUserResponse(user)})
}

// Logout revokes the presented token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().TokenTTLHours) * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": toUserResponse(user)})
}

// CanvasAuthorize starts the Canvas OAuth flow.
func (a *AuthController) CanvasAuthorize(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if a.svc.CanvasOAuth == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "canvas oauth not configured")
		return
	}
	state := uuid.NewString()
	utils.SaveState(state, userID, canvasStateTTL)
	utils.Success(ctx, gin.H{"authUrl": a.svc.CanvasOAuth.AuthURL(state), "state": state})
}

// CanvasCallback exchanges the authorization code and stores the Canvas token.
func (a *AuthController) CanvasCallback(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Code  string `json:"code" binding:"required"`
		State string `json:"state" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "authorization code and state are required")
		return
	}
	if a.svc.CanvasOAuth == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "canvas oauth not configured")
		return
	}
	if owner, ok := utils.ConsumeState(req.State); !ok || owner != userID {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid or expired state")
		return
	}

	reqCtx := ctx.Request.Context()
	tok, err := a.svc.CanvasOAuth.Exchange(reqCtx, req.Code)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50201, err.Error())
		return
	}
	baseURL := a.svc.CanvasOAuth.BaseURL()
	canvasUser, err := a.svc.Canvas(reqCtx, baseURL, tok.AccessToken).CurrentUser(reqCtx)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50202, err.Error())
		return
	}

	if err := a.saveCanvasConnection(reqCtx, userID, tok.AccessToken, tok.RefreshToken, baseURL, canvasUser); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to store canvas connection")
		return
	}
	utils.Success(ctx, gin.H{"message": "Canvas connected successfully", "canvasUserId": canvasUser.ID})
}

// CanvasToken connects Canvas with a personal access token instead of OAuth.
func (a *AuthController) CanvasToken(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Token       string `json:"token" binding:"required"`
		InstanceURL string `json:"instanceUrl"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "canvas token is required")
		return
	}
	baseURL := strings.TrimRight(strings.TrimSpace(req.InstanceURL), "/")
	if baseURL == "" {
		baseURL = config.Get().CanvasBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") && !strings.HasPrefix(baseURL, "http://") {
		utils.Error(ctx, http.StatusBadRequest, 40007, "instanceUrl must be an http(s) URL")
		return
	}

	reqCtx := ctx.Request.Context()
	canvasUser, err := a.svc.Canvas(reqCtx, baseURL, req.Token).CurrentUser(reqCtx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40008, "canvas rejected the token")
		return
	}
	if err := a.saveCanvasConnection(reqCtx, userID, req.Token, "", baseURL, canvasUser); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to store canvas connection")
		return
	}
	utils.Success(ctx, gin.H{"message": "Canvas connected successfully", "canvasUserId": canvasUser.ID})
}

// CanvasDisconnect forgets the stored Canvas credentials.
func (a *AuthController) CanvasDisconnect(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := a.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"canvas_token":         "",
		"canvas_refresh_token": "",
		"canvas_user_id":       "",
		"canvas_instance_url":  "",
	}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to disconnect canvas")
		return
	}
	utils.InvalidateByPrefix(canvasCacheKey(userID, ""))
	a.svc.Activity.Log(ctx.Request.Context(), userID, "canvas_disconnected", services.EntityUser, &userID, nil)
	utils.Success(ctx, gin.H{"message": "Canvas disconnected successfully"})
}

func (a *AuthController) saveCanvasConnection(ctx context.Context, userID uint, access, refresh, baseURL string, cu *services.CanvasUser) error {
	err := a.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"canvas_token":         access,
		"canvas_refresh_token": refresh,
		"canvas_user_id":       strconv.FormatInt(cu.ID, 10),
		"canvas_instance_url":  baseURL,
	}).Error
	if err != nil {
		return err
	}
	utils.InvalidateByPrefix(canvasCacheKey(userID, ""))
	a.svc.Activity.Log(ctx, userID, "canvas_connected", services.EntityUser, &userID, nil)
	return nil
}
