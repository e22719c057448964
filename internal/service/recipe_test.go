package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/internal/testdb"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

func newRecipeService(t *testing.T) (*RecipeService, *gorm.DB) {
	t.Helper()
	db := testdb.OpenSQLite(t)
	return NewRecipeService(db), db
}

func sampleCreateRequest() *types.CreateRecipeRequest {
	return &types.CreateRecipeRequest{
		Name:         "Tomato Basil Pasta",
		Description:  "A quick weeknight pasta with fresh basil.",
		Ingredients:  []string{"400g spaghetti", "4 tomatoes", "fresh basil"},
		Instructions: []string{"Boil pasta", "Make sauce", "Combine"},
		Calories:     520,
		Protein:      18,
		Carbs:        80,
		Fat:          12,
	}
}

func TestCreateAssignsCategoryAndTags(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	recipe, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "Pasta", recipe.Category)
	assert.NotEmpty(t, recipe.Tags)
	assert.Equal(t, owner, recipe.UserID)
}

func TestSaveGeneratedKeepsModelCategory(t *testing.T) {
	svc, _ := newRecipeService(t)

	recipe, err := svc.SaveGenerated(context.Background(), uuid.New(), &RecipeData{
		Name:         "Chocolate Lava Cake",
		Description:  "Molten center dessert.",
		Category:     "Dessert",
		Ingredients:  []string{"chocolate", "butter", "eggs"},
		Instructions: []string{"Melt", "Mix", "Bake"},
		Calories:     640,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dessert", recipe.Category)

	got, err := svc.Get(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chocolate Lava Cake", got.Name)
	assert.Equal(t, float64(640), got.Calories)
}

func TestGetUnknownRecipe(t *testing.T) {
	svc, _ := newRecipeService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}

func TestUpdateRejectsOtherUsers(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	recipe, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.New(), recipe.ID, &types.UpdateRecipeRequest{Name: "Hijacked"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.AsAppError(err).Code)

	updated, err := svc.Update(context.Background(), owner, recipe.ID, &types.UpdateRecipeRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	// Unspecified fields survive partial updates.
	assert.Equal(t, recipe.Description, updated.Description)
}

func TestDeleteRemovesRecipe(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	recipe, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), owner, recipe.ID))

	_, err = svc.Get(context.Background(), recipe.ID)
	assert.Error(t, err)
}

func TestFavorites(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()
	fan := uuid.New()

	recipe, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Favorite(context.Background(), fan, recipe.ID))
	// Favoriting twice is a no-op, not an error.
	require.NoError(t, svc.Favorite(context.Background(), fan, recipe.ID))

	favorites, err := svc.ListFavorites(context.Background(), fan)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, recipe.ID, favorites[0].ID)

	require.NoError(t, svc.Unfavorite(context.Background(), fan, recipe.ID))
	favorites, err = svc.ListFavorites(context.Background(), fan)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestDiscoverFilters(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	_, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), owner, &types.CreateRecipeRequest{
		Name:         "Miso Soup",
		Description:  "Light dashi broth with tofu.",
		Category:     "Soup",
		Ingredients:  []string{"miso paste", "tofu", "wakame"},
		Instructions: []string{"Heat dashi", "Whisk in miso"},
	})
	require.NoError(t, err)

	all, err := svc.Discover(context.Background(), DiscoverFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matched, err := svc.Discover(context.Background(), DiscoverFilter{Query: "miso"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Miso Soup", matched[0].Name)

	byCategory, err := svc.Discover(context.Background(), DiscoverFilter{Category: "Soup"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Soup", byCategory[0].Category)

	// The soup derives a "vegetarian" tag from its tofu; the pasta does not.
	byDietary, err := svc.Discover(context.Background(), DiscoverFilter{Dietary: "vegetarian"})
	require.NoError(t, err)
	require.Len(t, byDietary, 1)
	assert.Equal(t, "Miso Soup", byDietary[0].Name)

	withoutTofu, err := svc.Discover(context.Background(), DiscoverFilter{Exclude: "tofu"})
	require.NoError(t, err)
	require.Len(t, withoutTofu, 1)
	assert.Equal(t, "Tomato Basil Pasta", withoutTofu[0].Name)
}

func TestCategoriesCounts(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	for i := 0; i < 2; i++ {
		req := sampleCreateRequest()
		req.Name = req.Name + string(rune('A'+i))
		req.Category = "Pasta"
		_, err := svc.Create(context.Background(), owner, req)
		require.NoError(t, err)
	}
	soup := sampleCreateRequest()
	soup.Name = "Minestrone"
	soup.Category = "Soup"
	_, err := svc.Create(context.Background(), owner, soup)
	require.NoError(t, err)

	counts, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Category: "Pasta", Count: 2},
		{Category: "Soup", Count: 1},
	}, counts)
}

func TestSetImageURL(t *testing.T) {
	svc, _ := newRecipeService(t)
	owner := uuid.New()

	recipe, err := svc.Create(context.Background(), owner, sampleCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SetImageURL(context.Background(), recipe.ID, "https://img.example.com/x.png"))
	got, err := svc.Get(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/x.png", got.ImageURL)

	err = svc.SetImageURL(context.Background(), uuid.New(), "https://img.example.com/y.png")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}
