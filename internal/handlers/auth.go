package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/middleware"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	PhotoURL string `json:"photoURL" binding:"omitempty,url"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handlers) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handlers) signIn(ctx *gin.Context, user models.User, status int) {
	token, err := h.signer.GenerateJWT(user.ID, user.Email)

	if err != nil {
		log.Error("Failed to generate JWT", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setTokenCookie(ctx, token, int(h.signer.TTL().Seconds()))

	ctx.JSON(status, gin.H{
		"user":  user.Profile(),
		"token": token,
	})
}

func (h *Handlers) CreateUser(ctx *gin.Context) {
	var body CreateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		log.Debug("Invalid register request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	passwordHash, err := auth.HashPassword(body.Password)

	if err != nil {
		log.Error("Failed to hash password", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(body.Name),
		Email:        strings.ToLower(strings.TrimSpace(body.Email)),
		PasswordHash: passwordHash,
		PhotoURL:     body.PhotoURL,
	}

	if err := h.store.CreateUser(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		log.Error("Failed to create user", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.signIn(ctx, user, http.StatusCreated)
}

func (h *Handlers) LoginUser(ctx *gin.Context) {
	var body LoginUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.store.UserByEmail(ctx.Request.Context(), strings.ToLower(strings.TrimSpace(body.Email)))

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Error("Failed to fetch user", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, body.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	h.signIn(ctx, user, http.StatusOK)
}

func (h *Handlers) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": currentUser})
}

func (h *Handlers) LogoutUser(ctx *gin.Context) {
	h.setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
