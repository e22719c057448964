package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/middleware"
	"github.com/souschef-ai/backend/internal/models"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/testdb"
	"github.com/souschef-ai/backend/internal/types"
	"github.com/souschef-ai/backend/pkg/logger"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	queue    *queue.MemoryQueue
	registry *cancel.MemoryRegistry
	auth     *service.AuthService
	recipes  *service.RecipeService
	token    string
	userID   uuid.UUID
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.OpenSQLite(t)
	q := queue.NewMemoryQueue()
	registry := cancel.NewMemoryRegistry(0, 0, logger.NewNop())

	authService := service.NewAuthService(db, "test-secret")
	recipeService := service.NewRecipeService(db)
	profileService := service.NewProfileService(db)
	subscriptionService := service.NewSubscriptionService(db)

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger.NewNop()))
	RegisterRoutes(router, Services{
		Auth: NewAuthHandler(authService),
		Generation: NewGenerationHandler(
			q, registry, authService, recipeService, subscriptionService,
			nil, logger.NewNop(), 3,
		),
		Recipes:        NewRecipeHandler(recipeService),
		Profiles:       NewProfileHandler(profileService),
		Subscriptions:  NewSubscriptionHandler(subscriptionService),
		TokenValidator: authService,
	})

	token, err := authService.Register(context.Background(), &types.RegisterRequest{
		Name:     "Test Cook",
		Email:    "cook@example.com",
		Username: "testcook",
		Password: "supersecret",
	})
	require.NoError(t, err)
	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)

	return &testEnv{
		router:   router,
		db:       db,
		queue:    q,
		registry: registry,
		auth:     authService,
		recipes:  recipeService,
		token:    token,
		userID:   claims.UserID,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) enqueueRecipe(t *testing.T) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/v1/recipes", gin.H{"query": "a quick pasta dinner"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RequestID)
	return resp.RequestID
}

func TestGenerateRecipeEnqueues(t *testing.T) {
	env := setupTestEnv(t)

	requestID := env.enqueueRecipe(t)

	job, err := env.queue.Get(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusQueued, job.Status)
	assert.Equal(t, queue.KindRecipe, job.Kind)
	assert.Equal(t, env.userID.String(), job.OwnerUserID)

	var payload queue.RecipePayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "a quick pasta dinner", payload.Query)

	// Quota usage was recorded.
	var sub models.Subscription
	require.NoError(t, env.db.Where("user_id = ?", env.userID).First(&sub).Error)
	assert.Equal(t, 1, sub.GenerationsUsed)
}

func TestGenerateRecipeRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes", bytes.NewBufferString(`{"query":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateRecipeRejectsEmptyQuery(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/recipes", gin.H{"query": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRecipeQuotaExceeded(t *testing.T) {
	env := setupTestEnv(t)

	require.NoError(t, env.db.Model(&models.Subscription{}).
		Where("user_id = ?", env.userID).
		UpdateColumn("generations_used", models.FreeTierQuota).Error)

	w := env.request(t, http.MethodPost, "/api/v1/recipes", gin.H{"query": "one more"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestStatusUnknownID(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/recipes/status/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusReflectsLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	requestID := env.enqueueRecipe(t)

	w := env.request(t, http.MethodGet, "/api/v1/recipes/status/"+requestID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, queue.StatusQueued, status.Status)
	assert.Empty(t, status.Result)

	// Completed jobs answer identically on every poll.
	result := []byte(`{"recipe":{"name":"Pasta"}}`)
	_, err := env.queue.Lease(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, env.queue.Complete(context.Background(), requestID, result))

	for i := 0; i < 2; i++ {
		w = env.request(t, http.MethodGet, "/api/v1/recipes/status/"+requestID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, queue.StatusCompleted, status.Status)
		assert.JSONEq(t, string(result), string(status.Result))
		assert.Equal(t, 100, status.Progress)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	env := setupTestEnv(t)
	requestID := env.enqueueRecipe(t)

	w := env.request(t, http.MethodPost, "/api/v1/recipes/cancel", gin.H{"request_id": requestID})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, env.registry.IsCancelled(context.Background(), requestID))
}

func TestCancelUnknownAndFinishedLookAlike(t *testing.T) {
	env := setupTestEnv(t)

	// Unknown id.
	w := env.request(t, http.MethodPost, "/api/v1/recipes/cancel", gin.H{"request_id": uuid.NewString()})
	require.Equal(t, http.StatusOK, w.Code)
	var unknown CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unknown))
	assert.False(t, unknown.Success)

	// Already-completed job.
	requestID := env.enqueueRecipe(t)
	_, err := env.queue.Lease(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, env.queue.Complete(context.Background(), requestID, []byte(`{}`)))

	w = env.request(t, http.MethodPost, "/api/v1/recipes/cancel", gin.H{"request_id": requestID})
	require.Equal(t, http.StatusOK, w.Code)
	var finished CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &finished))
	assert.False(t, finished.Success)

	// The two failure modes are indistinguishable to the caller.
	assert.Equal(t, unknown.Message, finished.Message)
}

func TestQueueStatus(t *testing.T) {
	env := setupTestEnv(t)
	env.enqueueRecipe(t)
	env.enqueueRecipe(t)

	w := env.request(t, http.MethodGet, "/api/v1/recipes/queue-status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats queue.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Queued)
	assert.Zero(t, stats.Active)
}

func TestChatEnqueues(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/chat", gin.H{
		"message": "what goes with salmon?",
		"message_history": []gin.H{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	job, err := env.queue.Get(context.Background(), resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, queue.KindChat, job.Kind)

	var payload queue.ChatPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "what goes with salmon?", payload.Message)
	assert.Len(t, payload.MessageHistory, 2)
}

func TestGenerateImageForOwnedRecipe(t *testing.T) {
	env := setupTestEnv(t)

	recipe, err := env.recipes.Create(context.Background(), env.userID, &types.CreateRecipeRequest{
		Name:         "Grilled Salmon",
		Description:  "Cedar plank salmon.",
		Ingredients:  []string{"salmon", "lemon"},
		Instructions: []string{"Grill"},
	})
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/v1/recipes/"+recipe.ID.String()+"/image", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	job, err := env.queue.Get(context.Background(), resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, queue.KindImage, job.Kind)
}

func TestGenerateImageRejectsForeignRecipe(t *testing.T) {
	env := setupTestEnv(t)

	recipe, err := env.recipes.Create(context.Background(), uuid.New(), &types.CreateRecipeRequest{
		Name:         "Someone Else's Pie",
		Description:  "Not yours.",
		Ingredients:  []string{"apples"},
		Instructions: []string{"Bake"},
	})
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/v1/recipes/"+recipe.ID.String()+"/image", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
