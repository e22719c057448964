package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// RecipeData represents the structure of a recipe as returned by the LLM
type RecipeData struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Cuisine      string   `json:"cuisine"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepTime     string   `json:"prep_time"`
	CookTime     string   `json:"cook_time"`
	Servings     string   `json:"servings"`
	Difficulty   string   `json:"difficulty"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fat          float64  `json:"fat"`
}

// Macros represents nutritional macros information
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the DeepSeek chat-completions API
type chatRequest struct {
	Model            string            `json:"model"`
	Messages         []Message         `json:"messages"`
	ResponseFormat   map[string]string `json:"response_format,omitempty"`
	Temperature      float64           `json:"temperature,omitempty"`
	TopP             float64           `json:"top_p,omitempty"`
	FrequencyPenalty float64           `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64           `json:"presence_penalty,omitempty"`
}

const recipeSystemPrompt = `You are a professional chef and nutritionist. Please provide your response in JSON format with the following structure:
{
    "name": "Recipe name",
    "description": "Brief description of the recipe",
    "category": "One of: Main Course, Dessert, Snack, Appetizer, Breakfast, Lunch, Dinner, Side Dish, Beverage, Soup, Salad, Bread, Pasta, Seafood, Meat, Vegetarian, Vegan, Gluten-Free",
    "cuisine": "One of: Italian, French, Chinese, Japanese, Thai, Indian, Mexican, Mediterranean, American, British, German, Korean, Spanish, Brazilian, Moroccan, Fusion, or Other",
    "ingredients": ["2 cups flour", "1 cup sugar"],
    "instructions": ["Step 1: Mix the dry ingredients", "Step 2: Bake at 350F for 30 minutes"],
    "prep_time": "Preparation time",
    "cook_time": "Cooking time",
    "servings": "Number of servings",
    "difficulty": "Easy/Medium/Hard",
    "calories": 350,
    "protein": 15,
    "carbs": 45,
    "fat": 12
}

Note: The calories, protein, carbs, and fat fields must be numbers, not strings.
The category field MUST be one of the listed categories above.
The cuisine field MUST be one of the listed cuisines above.`

const chatSystemPrompt = `You are SousChef, a friendly cooking assistant. Answer cooking questions, suggest substitutions and help users plan meals. Keep answers practical and concise.`

// LLMService handles interactions with the DeepSeek API
type LLMService struct {
	apiKey string
	apiURL string
	client *http.Client
	logger *zap.Logger
}

// NewLLMService creates a new LLMService instance
func NewLLMService(apiKey, apiURL string, logger *zap.Logger) (*LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key must be set")
	}
	return &LLMService{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}, nil
}

// GenerateRecipe generates a recipe for the query, honoring the user's
// dietary preferences and allergens. Returns the raw recipe JSON.
func (s *LLMService) GenerateRecipe(ctx context.Context, query string, dietaryPrefs, allergens []string) (string, error) {
	prompt := fmt.Sprintf("Generate a recipe for: %s", query)
	if len(dietaryPrefs) > 0 {
		prompt += ". The recipe should be suitable for: " + strings.Join(dietaryPrefs, ", ")
	}
	if len(allergens) > 0 {
		prompt += ". Avoid using: " + strings.Join(allergens, ", ")
	}

	req := chatRequest{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: recipeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat:   map[string]string{"type": "json_object"},
		Temperature:      0.9,
		TopP:             0.9,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.5,
	}

	return s.complete(ctx, req)
}

// Chat answers a conversational message, replaying any prior history the
// client carried with the request.
func (s *LLMService) Chat(ctx context.Context, message string, history []Message) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: chatSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: message})

	req := chatRequest{
		Model:       "deepseek-chat",
		Messages:    messages,
		Temperature: 0.7,
	}

	return s.complete(ctx, req)
}

// CalculateMacros estimates the macronutrients for a set of ingredients
func (s *LLMService) CalculateMacros(ctx context.Context, ingredients []string) (*Macros, error) {
	prompt := "Provide an approximate macronutrient breakdown as JSON with fields calories, protein, carbs and fat for the following ingredients:\n" + strings.Join(ingredients, "\n")

	req := chatRequest{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: `You are a nutrition expert. Respond only with JSON like {"calories":0,"protein":0,"carbs":0,"fat":0}`},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	content, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	var macros Macros
	if err := json.Unmarshal([]byte(content), &macros); err != nil {
		return nil, fmt.Errorf("failed to parse macros: %w", err)
	}
	return &macros, nil
}

// complete sends one chat-completions request and returns the first choice.
func (s *LLMService) complete(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.NewUpstream("LLM request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUpstream("failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("LLM request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", apperrors.NewUpstream(fmt.Sprintf("LLM request failed with status %d", resp.StatusCode), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperrors.NewUpstream("failed to decode LLM response", err)
	}
	if len(result.Choices) == 0 {
		return "", apperrors.NewUpstream("no response from LLM", nil)
	}

	return result.Choices[0].Message.Content, nil
}
