package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/souschef-ai/backend/internal/models"
	"github.com/souschef-ai/backend/internal/types"
)

// ILLMService defines the interface for language-model backed generation.
type ILLMService interface {
	GenerateRecipe(ctx context.Context, query string, dietaryPrefs, allergens []string) (string, error)
	Chat(ctx context.Context, message string, history []Message) (string, error)
	CalculateMacros(ctx context.Context, ingredients []string) (*Macros, error)
}

// IImageService defines the interface for image generation and storage.
type IImageService interface {
	GenerateRecipeImage(ctx context.Context, recipeName, description string) (string, error)
	GenerateImageFromPrompt(ctx context.Context, prompt, size string) (string, error)
}

// IAuthService defines the interface for authentication operations.
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
	UserPreferences(ctx context.Context, userID uuid.UUID) (dietary []string, allergens []string, err error)
}

// IProfileService defines the interface for user profile operations.
type IProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *types.UpdateProfileRequest) (*models.UserProfile, error)
}

// IRecipeService defines the interface for saved recipe operations.
type IRecipeService interface {
	Create(ctx context.Context, userID uuid.UUID, req *types.CreateRecipeRequest) (*models.Recipe, error)
	SaveGenerated(ctx context.Context, userID uuid.UUID, data *RecipeData) (*models.Recipe, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *types.UpdateRecipeRequest) (*models.Recipe, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error
	Favorite(ctx context.Context, userID, recipeID uuid.UUID) error
	Unfavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error)
	Discover(ctx context.Context, filter DiscoverFilter) ([]models.Recipe, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
}

// ISubscriptionService defines the interface for plan and quota operations.
type ISubscriptionService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CheckQuota(ctx context.Context, userID uuid.UUID) error
	ConsumeGeneration(ctx context.Context, userID uuid.UUID) error
	Upgrade(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}
