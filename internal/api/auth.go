package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// AuthHandler owns registration and login.
type AuthHandler struct {
	auth service.IAuthService
}

func NewAuthHandler(auth service.IAuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}

	token, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			abortWith(c, apperrors.NewUnauthorized("invalid email or password"))
			return
		}
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
