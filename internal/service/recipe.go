package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/souschef-ai/backend/internal/models"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// RecipeService owns persistence of saved recipes, favorites and discovery
// queries.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// Create saves a recipe authored or edited by the user directly.
func (s *RecipeService) Create(ctx context.Context, userID uuid.UUID, req *types.CreateRecipeRequest) (*models.Recipe, error) {
	category := req.Category
	if category == "" {
		category = CategorizeRecipe(req.Name, req.Description, req.Ingredients)
	}
	tags := req.Tags
	if len(tags) == 0 {
		tags = DeriveTags(req.Name, req.Description, req.Ingredients)
	}

	recipe := &models.Recipe{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		Category:     category,
		Cuisine:      req.Cuisine,
		ImageURL:     req.ImageURL,
		Ingredients:  models.JSONBStringArray(req.Ingredients),
		Instructions: models.JSONBStringArray(req.Instructions),
		Tags:         models.JSONBStringArray(tags),
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		Difficulty:   req.Difficulty,
		Calories:     req.Calories,
		Protein:      req.Protein,
		Carbs:        req.Carbs,
		Fat:          req.Fat,
		Embedding:    GenerateEmbedding(req.Name + " " + req.Description),
		UserID:       userID,
	}
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// SaveGenerated persists a recipe produced by the generation pipeline.
// Category and tags are filled in when the model left them out, and macros
// default to whatever the model returned.
func (s *RecipeService) SaveGenerated(ctx context.Context, userID uuid.UUID, data *RecipeData) (*models.Recipe, error) {
	category := data.Category
	if category == "" {
		category = CategorizeRecipe(data.Name, data.Description, data.Ingredients)
	}

	recipe := &models.Recipe{
		ID:           uuid.New(),
		Name:         data.Name,
		Description:  data.Description,
		Category:     category,
		Cuisine:      data.Cuisine,
		Ingredients:  models.JSONBStringArray(data.Ingredients),
		Instructions: models.JSONBStringArray(data.Instructions),
		Tags:         models.JSONBStringArray(DeriveTags(data.Name, data.Description, data.Ingredients)),
		PrepTime:     data.PrepTime,
		CookTime:     data.CookTime,
		Servings:     data.Servings,
		Difficulty:   data.Difficulty,
		Calories:     data.Calories,
		Protein:      data.Protein,
		Carbs:        data.Carbs,
		Fat:          data.Fat,
		Embedding:    GenerateEmbedding(data.Name + " " + data.Description),
		UserID:       userID,
	}
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// Get returns a recipe by id.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("recipe not found")
		}
		return nil, err
	}
	return &recipe, nil
}

// ListByUser returns the user's saved recipes, newest first.
func (s *RecipeService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recipes).Error
	return recipes, err
}

// Update modifies a saved recipe. Only the owner may update it.
func (s *RecipeService) Update(ctx context.Context, userID, id uuid.UUID, req *types.UpdateRecipeRequest) (*models.Recipe, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.UserID != userID {
		return nil, apperrors.New(apperrors.CodeForbidden, "recipe belongs to another user")
	}

	if req.Name != "" {
		recipe.Name = req.Name
	}
	if req.Description != "" {
		recipe.Description = req.Description
	}
	if req.Category != "" {
		recipe.Category = req.Category
	}
	if req.Cuisine != "" {
		recipe.Cuisine = req.Cuisine
	}
	if req.ImageURL != "" {
		recipe.ImageURL = req.ImageURL
	}
	if req.Ingredients != nil {
		recipe.Ingredients = models.JSONBStringArray(req.Ingredients)
	}
	if req.Instructions != nil {
		recipe.Instructions = models.JSONBStringArray(req.Instructions)
	}
	if req.Tags != nil {
		recipe.Tags = models.JSONBStringArray(req.Tags)
	}
	if req.PrepTime != "" {
		recipe.PrepTime = req.PrepTime
	}
	if req.CookTime != "" {
		recipe.CookTime = req.CookTime
	}
	if req.Servings != "" {
		recipe.Servings = req.Servings
	}
	if req.Difficulty != "" {
		recipe.Difficulty = req.Difficulty
	}
	if req.Calories > 0 {
		recipe.Calories = req.Calories
	}
	if req.Protein > 0 {
		recipe.Protein = req.Protein
	}
	if req.Carbs > 0 {
		recipe.Carbs = req.Carbs
	}
	if req.Fat > 0 {
		recipe.Fat = req.Fat
	}
	recipe.Embedding = GenerateEmbedding(recipe.Name + " " + recipe.Description)

	if err := s.db.WithContext(ctx).Save(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// Delete removes a saved recipe. Only the owner may delete it.
func (s *RecipeService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if recipe.UserID != userID {
		return apperrors.New(apperrors.CodeForbidden, "recipe belongs to another user")
	}
	return s.db.WithContext(ctx).Delete(recipe).Error
}

// SetImageURL stores the generated image URL on a recipe. Used by the image
// generation pipeline once the upload finishes.
func (s *RecipeService) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ?", id).
		Update("image_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("recipe not found")
	}
	return nil
}

// Favorite marks a recipe as a favorite of the user. Re-favoriting is a no-op.
func (s *RecipeService) Favorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	if _, err := s.Get(ctx, recipeID); err != nil {
		return err
	}
	var existing models.RecipeFavorite
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	fav := models.RecipeFavorite{ID: uuid.New(), UserID: userID, RecipeID: recipeID}
	return s.db.WithContext(ctx).Create(&fav).Error
}

// Unfavorite removes a favorite mark.
func (s *RecipeService) Unfavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.RecipeFavorite{}).Error
}

// ListFavorites returns the recipes the user has favorited, newest favorite first.
func (s *RecipeService) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Joins("JOIN recipe_favorites ON recipe_favorites.recipe_id = recipes.id").
		Where("recipe_favorites.user_id = ?", userID).
		Order("recipe_favorites.created_at DESC").
		Find(&recipes).Error
	return recipes, err
}

// DiscoverFilter narrows a discovery search. All fields are optional.
type DiscoverFilter struct {
	Query    string
	Category string
	Dietary  string // tag match, e.g. "vegan"
	Exclude  string // drop recipes whose ingredients mention this term
	Limit    int
}

// Discover returns recipes across all users matching the filter. With a
// search term on Postgres, results are ordered by embedding distance;
// otherwise newest first.
func (s *RecipeService) Discover(ctx context.Context, filter DiscoverFilter) ([]models.Recipe, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	onPostgres := s.db.Dialector.Name() == "postgres"
	// jsonb columns need a text cast before LIKE on Postgres; sqlite stores
	// them as plain text.
	tagsCol, ingredientsCol := "tags", "ingredients"
	if onPostgres {
		tagsCol, ingredientsCol = "tags::text", "ingredients::text"
	}

	q := s.db.WithContext(ctx).Model(&models.Recipe{})
	term := strings.TrimSpace(filter.Query)
	if term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if dietary := strings.ToLower(strings.TrimSpace(filter.Dietary)); dietary != "" {
		q = q.Where("LOWER("+tagsCol+") LIKE ?", `%"`+dietary+`"%`)
	}
	if exclude := strings.ToLower(strings.TrimSpace(filter.Exclude)); exclude != "" {
		q = q.Where("LOWER("+ingredientsCol+") NOT LIKE ?", "%"+exclude+"%")
	}

	if term != "" && onPostgres {
		q = q.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "embedding <-> ?",
			Vars:               []interface{}{GenerateEmbedding(term)},
			WithoutParentheses: true,
		}})
	} else {
		q = q.Order("created_at DESC")
	}

	var recipes []models.Recipe
	err := q.Limit(limit).Find(&recipes).Error
	return recipes, err
}

// CategoryCount is one row of the categories listing.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Categories returns the categories present across saved recipes with how
// many recipes each holds.
func (s *RecipeService) Categories(ctx context.Context) ([]CategoryCount, error) {
	var counts []CategoryCount
	err := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Select("category, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("category").
		Scan(&counts).Error
	return counts, err
}
