package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"equipment-analytics-api/middleware"
	"equipment-analytics-api/models"
	"equipment-analytics-api/services"
)

type AuthHandler struct {
	db          *gorm.DB
	authService *services.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(db *gorm.DB, authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{db: db, authService: authService, logger: logger}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func checkPasswordLength(password string) error {
	if len(password) < services.MinPasswordLength {
		return badRequest(fmt.Sprintf("password must be at least %d characters", services.MinPasswordLength))
	}
	return nil
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, badRequest(err.Error()))
		return
	}
	if err := checkPasswordLength(req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, Password: hash, Role: "user"}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already registered", "kind": "conflict"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, badRequest(err.Error()))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "kind": "unauthorized"})
		return
	}

	if !h.authService.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "kind": "unauthorized"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout is a client-side operation for stateless tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "kind": "unauthorized"})
		return nil, false
	}
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists", "kind": "unauthorized"})
			return nil, false
		}
		respondError(c, h.logger, err)
		return nil, false
	}
	return &user, true
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, badRequest(err.Error()))
		return
	}
	if err := checkPasswordLength(req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !h.authService.CheckPassword(user.Password, req.OldPassword) {
		respondError(c, h.logger, badRequest("current password is incorrect"))
		return
	}

	hash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(user).Update("password", hash).Error; err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
