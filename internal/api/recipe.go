package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// RecipeHandler owns the saved-recipe CRUD, favorites and discovery
// endpoints.
type RecipeHandler struct {
	recipes service.IRecipeService
}

func NewRecipeHandler(recipes service.IRecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// RegisterRoutes mounts the recipe endpoints on an authenticated group.
func (h *RecipeHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/recipes/saved", h.List)
	r.POST("/recipes/saved", h.Create)
	r.GET("/recipes/saved/:id", h.Get)
	r.PUT("/recipes/saved/:id", h.Update)
	r.DELETE("/recipes/saved/:id", h.Delete)
	r.POST("/recipes/saved/:id/favorite", h.Favorite)
	r.DELETE("/recipes/saved/:id/favorite", h.Unfavorite)
	r.GET("/recipes/favorites", h.ListFavorites)
	r.GET("/recipes/discover", h.Discover)
	r.GET("/recipes/categories", h.Categories)
}

func (h *RecipeHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	recipes, err := h.recipes.ListByUser(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), userID, &req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}
	var req types.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, apperrors.NewValidation("invalid request body"))
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), userID, id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe deleted"})
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}
	if err := h.recipes.Favorite(c.Request.Context(), userID, id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe favorited"})
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, apperrors.NewValidation("invalid recipe id"))
		return
	}
	if err := h.recipes.Unfavorite(c.Request.Context(), userID, id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe unfavorited"})
}

func (h *RecipeHandler) ListFavorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWith(c, apperrors.NewUnauthorized("user not authenticated"))
		return
	}
	recipes, err := h.recipes.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Discover(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	recipes, err := h.recipes.Discover(c.Request.Context(), service.DiscoverFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Dietary:  c.Query("dietary"),
		Exclude:  c.Query("exclude"),
		Limit:    limit,
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Categories(c *gin.Context) {
	categories, err := h.recipes.Categories(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
