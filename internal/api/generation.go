package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/metrics"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// cancelOutcomeMessage is returned for both unknown and already-finished
// request ids. Callers cannot distinguish the two cases from the response.
const cancelOutcomeMessage = "request not found or already finished"

// StatusResponse is the body of GET /recipes/status/:requestId.
type StatusResponse struct {
	RequestID string          `json:"request_id"`
	Status    queue.Status    `json:"status"`
	Progress  int             `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// CancelResponse is the body of POST /recipes/cancel.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GenerationHandler owns the asynchronous generation endpoints: enqueue,
// status polling, cancellation and queue introspection.
type GenerationHandler struct {
	queue         queue.Queue
	registry      cancel.Registry
	auth          service.IAuthService
	recipes       service.IRecipeService
	subscriptions service.ISubscriptionService
	metrics       *metrics.Metrics
	logger        *zap.Logger
	maxAttempts   int
}

func NewGenerationHandler(
	q queue.Queue,
	registry cancel.Registry,
	auth service.IAuthService,
	recipes service.IRecipeService,
	subscriptions service.ISubscriptionService,
	m *metrics.Metrics,
	logger *zap.Logger,
	maxAttempts int,
) *GenerationHandler {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &GenerationHandler{
		queue:         q,
		registry:      registry,
		auth:          auth,
		recipes:       recipes,
		subscriptions: subscriptions,
		metrics:       m,
		logger:        logger,
		maxAttempts:   maxAttempts,
	}
}

// RegisterRoutes mounts the generation endpoints on an authenticated group.
func (h *GenerationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/recipes", h.GenerateRecipe)
	r.GET("/recipes/status/:requestId", h.Status)
	r.POST("/recipes/cancel", h.Cancel)
	r.GET("/recipes/queue-status", h.QueueStatus)
	r.POST("/chat", h.Chat)
	r.POST("/recipes/:id/image", h.GenerateImage)
}

// GenerateRecipe accepts a recipe generation request and enqueues it.
// Responds 202 with the request id to poll.
func (h *GenerationHandler) GenerateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}

	var req types.GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}

	if err := h.subscriptions.CheckQuota(c.Request.Context(), userID); err != nil {
		abortWith(c, err)
		return
	}

	dietary, allergens, err := h.auth.UserPreferences(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("could not load user preferences", zap.Error(err))
	}

	payload, err := queue.EncodePayload(queue.RecipePayload{
		Query:              req.Query,
		Save:               req.Save,
		DietaryPreferences: dietary,
		Allergens:          allergens,
	})
	if err != nil {
		abortWith(c, apperrors.NewInternal("could not encode job payload", err))
		return
	}

	h.enqueue(c, queue.KindRecipe, payload, userID, true)
}

// Chat enqueues a conversational request. Replies are polled via the status
// endpoint like every other generation job.
func (h *GenerationHandler) Chat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}

	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}

	history := make([]queue.ChatMessage, 0, len(req.MessageHistory))
	for _, m := range req.MessageHistory {
		history = append(history, queue.ChatMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := queue.EncodePayload(queue.ChatPayload{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		MessageHistory: history,
	})
	if err != nil {
		abortWith(c, apperrors.NewInternal("could not encode job payload", err))
		return
	}

	h.enqueue(c, queue.KindChat, payload, userID, false)
}

// GenerateImage enqueues image generation for a saved recipe the user owns.
func (h *GenerationHandler) GenerateImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}

	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), recipeID)
	if err != nil {
		abortWith(c, err)
		return
	}
	if recipe.UserID != userID {
		abortWith(c, apperrors.New(apperrors.CodeForbidden, "recipe belongs to another user"))
		return
	}

	if err := h.subscriptions.CheckQuota(c.Request.Context(), userID); err != nil {
		abortWith(c, err)
		return
	}

	payload, err := queue.EncodePayload(queue.ImagePayload{RecipeID: recipeID.String()})
	if err != nil {
		abortWith(c, apperrors.NewInternal("could not encode job payload", err))
		return
	}

	h.enqueue(c, queue.KindImage, payload, userID, true)
}

// enqueue creates the job, registers it with the cancellation registry and
// answers 202. Registry registration failing is not fatal: an unregistered
// id simply reads as not-cancelled.
func (h *GenerationHandler) enqueue(c *gin.Context, kind queue.Kind, payload []byte, userID uuid.UUID, countsAgainstQuota bool) {
	job := &queue.Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     payload,
		MaxAttempts: h.maxAttempts,
		OwnerUserID: userID.String(),
	}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		abortWith(c, apperrors.NewInternal("could not enqueue job", err))
		return
	}
	if err := h.registry.Register(c.Request.Context(), job.ID); err != nil {
		h.logger.Warn("cancellation registry registration failed",
			zap.String("request_id", job.ID), zap.Error(err))
	}
	if countsAgainstQuota {
		if err := h.subscriptions.ConsumeGeneration(c.Request.Context(), userID); err != nil {
			h.logger.Warn("could not record quota usage",
				zap.String("request_id", job.ID), zap.Error(err))
		}
	}
	if h.metrics != nil {
		h.metrics.JobsEnqueued.WithLabelValues(string(kind)).Inc()
	}

	c.JSON(http.StatusAccepted, gin.H{"request_id": job.ID})
}

// Status is a pure read of the job state. 404 for unknown ids; terminal
// states answer identically on every poll.
func (h *GenerationHandler) Status(c *gin.Context) {
	requestID := c.Param("requestId")

	job, err := h.queue.Get(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			abortWith(c, apperrors.NewNotFound("unknown request id"))
			return
		}
		abortWith(c, apperrors.NewInternal("could not read job state", err))
		return
	}

	resp := StatusResponse{
		RequestID: job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
	}
	if job.Status == queue.StatusCompleted && len(job.Result) > 0 {
		resp.Result = json.RawMessage(job.Result)
	}
	if job.Status == queue.StatusFailed {
		resp.Error = job.Error
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel requests cooperative cancellation of a queued or active job. The
// response never errors: success=false covers unknown ids and jobs that
// already finished, without distinguishing the two.
func (h *GenerationHandler) Cancel(c *gin.Context) {
	var req types.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}

	job, err := h.queue.Get(c.Request.Context(), req.RequestID)
	if err != nil || job.Status.Terminal() {
		if err != nil && !errors.Is(err, queue.ErrNotFound) {
			h.logger.Warn("cancel lookup failed", zap.String("request_id", req.RequestID), zap.Error(err))
		}
		c.JSON(http.StatusOK, CancelResponse{Success: false, Message: cancelOutcomeMessage})
		return
	}

	// Re-register first so the flag sticks even if the original record was
	// already swept out of the registry.
	if err := h.registry.Register(c.Request.Context(), req.RequestID); err != nil {
		h.logger.Warn("cancel registration failed", zap.String("request_id", req.RequestID), zap.Error(err))
	}
	if _, err := h.registry.Cancel(c.Request.Context(), req.RequestID); err != nil {
		abortWith(c, apperrors.NewInternal("could not record cancellation", err))
		return
	}

	c.JSON(http.StatusOK, CancelResponse{Success: true, Message: "cancellation requested"})
}

// QueueStatus reports aggregate queue depth.
func (h *GenerationHandler) QueueStatus(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		abortWith(c, apperrors.NewInternal("could not read queue stats", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
