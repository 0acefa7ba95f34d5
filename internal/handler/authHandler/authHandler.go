package authHandler

import (
	"context"
	"net/http"

	"filetree-service/internal/common"
	"filetree-service/internal/handler"
	"filetree-service/internal/model/session"
	"filetree-service/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*session.Session, error)
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	Refresh(ctx context.Context, token string) (*session.Session, error)
	SignOut(ctx context.Context, token string) error
}

type AuthHandler struct {
	authService AuthService
}

func New(service AuthService) *AuthHandler {
	return &AuthHandler{authService: service}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "invalid request body")
		return
	}
	s, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "invalid request body")
		return
	}
	s, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Refresh trades a valid bearer token for a fresh one. The old token is revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		handler.WriteError(c, common.ErrInvalidToken)
		return
	}
	s, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		handler.WriteError(c, common.ErrInvalidToken)
		return
	}
	if err := h.authService.SignOut(c.Request.Context(), token); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
