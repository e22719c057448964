package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/souschef-ai/backend/internal/service"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// SubscriptionHandler exposes the user's plan and quota. Payment collection
// happens on the hosted billing platform; checkout and cancel are thin
// wrappers over the entitlement record.
type SubscriptionHandler struct {
	subscriptions service.ISubscriptionService
}

func NewSubscriptionHandler(subscriptions service.ISubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// RegisterRoutes mounts the subscription endpoints on an authenticated group.
func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sub := r.Group("/subscription")
	{
		sub.GET("", h.Get)
		sub.POST("/checkout", h.Checkout)
		sub.POST("/cancel", h.Cancel)
	}
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	sub, err := h.subscriptions.Get(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscription": sub,
		"remaining":    sub.Remaining(),
	})
}

func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	sub, err := h.subscriptions.Upgrade(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	sub, err := h.subscriptions.Cancel(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
