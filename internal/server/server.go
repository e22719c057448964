// Package server assembles the HTTP tier: gin engine, middleware stack and
// route registration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/config"
	"github.com/souschef-ai/backend/internal/api"
	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/metrics"
	"github.com/souschef-ai/backend/internal/middleware"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/service"
)

// Deps are the shared resources the server builds its handlers from.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Queue    queue.Queue
	Registry cancel.Registry
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Server is the HTTP tier.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New builds the full handler stack.
func New(cfg *config.Config, deps Deps) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler(deps.Logger))
	router.Use(middleware.CORS(cfg.FrontendOrigin))

	authService := service.NewAuthService(deps.DB, cfg.JWTSecret)
	recipeService := service.NewRecipeService(deps.DB)
	profileService := service.NewProfileService(deps.DB)
	subscriptionService := service.NewSubscriptionService(deps.DB)

	rateLimiter := middleware.NewTieredRateLimiter(deps.Redis, middleware.DefaultRateLimitConfig(), deps.Logger)

	api.RegisterRoutes(router, api.Services{
		Auth: api.NewAuthHandler(authService),
		Generation: api.NewGenerationHandler(
			deps.Queue,
			deps.Registry,
			authService,
			recipeService,
			subscriptionService,
			deps.Metrics,
			deps.Logger,
			cfg.JobMaxAttempts,
		),
		Recipes:        api.NewRecipeHandler(recipeService),
		Profiles:       api.NewProfileHandler(profileService),
		Subscriptions:  api.NewSubscriptionHandler(subscriptionService),
		TokenValidator: authService,
		RateLimiter:    rateLimiter,
	})

	return &Server{
		router: router,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  time.Minute,
		},
		logger: deps.Logger,
	}
}

// Router exposes the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
