package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// ProfileHandler owns the user profile endpoints.
type ProfileHandler struct {
	profiles service.IProfileService
}

func NewProfileHandler(profiles service.IProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes mounts the profile endpoints on an authenticated group.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.Get)
	r.PUT("/profile", h.Update)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}
	profile, err := h.profiles.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
