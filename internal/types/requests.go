package types

// RegisterRequest is the body for POST /auth/register
type RegisterRequest struct {
	Name               string   `json:"name" binding:"required"`
	Email              string   `json:"email" binding:"required,email"`
	Username           string   `json:"username" binding:"required,min=3,max=50"`
	Password           string   `json:"password" binding:"required,min=8"`
	DietaryPreferences []string `json:"dietary_preferences"`
	Allergens          []string `json:"allergens"`
}

// LoginRequest is the body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GenerateRecipeRequest is the body for POST /recipes (asynchronous generation)
type GenerateRecipeRequest struct {
	Query string `json:"query" binding:"required,max=2000"`
	Save  bool   `json:"save"`
}

// CancelRequest is the body for POST /recipes/cancel
type CancelRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

// ChatMessage is a single turn in a chat history
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the body for POST /chat
type ChatRequest struct {
	Message        string        `json:"message" binding:"required,max=4000"`
	ConversationID string        `json:"conversation_id"`
	MessageHistory []ChatMessage `json:"message_history" binding:"max=50,dive"`
}

// CreateRecipeRequest is the body for saving a recipe directly
type CreateRecipeRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Category     string   `json:"category"`
	Cuisine      string   `json:"cuisine"`
	ImageURL     string   `json:"image_url"`
	Ingredients  []string `json:"ingredients" binding:"required"`
	Instructions []string `json:"instructions" binding:"required"`
	Tags         []string `json:"tags"`
	PrepTime     string   `json:"prep_time"`
	CookTime     string   `json:"cook_time"`
	Servings     string   `json:"servings"`
	Difficulty   string   `json:"difficulty"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fat          float64  `json:"fat"`
}

// UpdateRecipeRequest is the body for updating a saved recipe
type UpdateRecipeRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Cuisine      string   `json:"cuisine"`
	ImageURL     string   `json:"image_url"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags"`
	PrepTime     string   `json:"prep_time"`
	CookTime     string   `json:"cook_time"`
	Servings     string   `json:"servings"`
	Difficulty   string   `json:"difficulty"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fat          float64  `json:"fat"`
}

// UpdateProfileRequest is the body for PUT /profile
type UpdateProfileRequest struct {
	Username            string   `json:"username"`
	Bio                 string   `json:"bio"`
	CookingAbilityLevel string   `json:"cooking_ability_level"`
	DietaryPreferences  []string `json:"dietary_preferences"`
	Allergens           []string `json:"allergens"`
}
