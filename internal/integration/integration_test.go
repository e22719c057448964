package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/testdb"
	"github.com/souschef-ai/backend/internal/types"
)

// Exercises the persistence layer against real Postgres with the vector
// extension, which sqlite unit tests cannot cover.
func TestRecipeLifecycleOnPostgres(t *testing.T) {
	pg := testdb.SetupPostgres(t)
	defer pg.Close()

	ctx := context.Background()
	auth := service.NewAuthService(pg.DB, "integration-secret")
	recipes := service.NewRecipeService(pg.DB)
	subscriptions := service.NewSubscriptionService(pg.DB)

	token, err := auth.Register(ctx, &types.RegisterRequest{
		Name:               "Integration Cook",
		Email:              "integration@example.com",
		Username:           "integrationcook",
		Password:           "supersecret",
		DietaryPreferences: []string{"vegetarian"},
		Allergens:          []string{"shellfish"},
	})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)

	recipe, err := recipes.Create(ctx, claims.UserID, &types.CreateRecipeRequest{
		Name:         "Roasted Vegetable Lasagna",
		Description:  "Layered pasta with seasonal vegetables.",
		Ingredients:  []string{"lasagna sheets", "zucchini", "ricotta"},
		Instructions: []string{"Roast vegetables", "Layer", "Bake"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pasta", recipe.Category)

	require.NoError(t, recipes.Favorite(ctx, claims.UserID, recipe.ID))
	favorites, err := recipes.ListFavorites(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	found, err := recipes.Discover(ctx, service.DiscoverFilter{Query: "lasagna"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, subscriptions.CheckQuota(ctx, claims.UserID))
	require.NoError(t, subscriptions.ConsumeGeneration(ctx, claims.UserID))
	sub, err := subscriptions.Get(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.GenerationsUsed)
}
