package api

import (
	"github.com/gin-gonic/gin"

	"github.com/souschef-ai/backend/internal/middleware"
)

// Services bundles the dependencies the route tree needs.
type Services struct {
	Auth          *AuthHandler
	Generation    *GenerationHandler
	Recipes       *RecipeHandler
	Profiles      *ProfileHandler
	Subscriptions *SubscriptionHandler

	TokenValidator middleware.TokenValidator
	RateLimiter    *middleware.TieredRateLimiter
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(router *gin.Engine, s Services) {
	router.GET("/health", HealthCheck)
	router.GET("/api/health", HealthCheck)
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")

	public := v1.Group("")
	if s.RateLimiter != nil {
		public.Use(s.RateLimiter.Middleware())
	}
	s.Auth.RegisterRoutes(public)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(s.TokenValidator))
	// Limits apply after auth so authenticated identities are keyed by user
	// id and granted the authenticated cap.
	if s.RateLimiter != nil {
		authed.Use(s.RateLimiter.Middleware())
	}
	s.Generation.RegisterRoutes(authed)
	s.Recipes.RegisterRoutes(authed)
	s.Profiles.RegisterRoutes(authed)
	s.Subscriptions.RegisterRoutes(authed)
}
