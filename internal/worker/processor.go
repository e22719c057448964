package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/service"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// RecipeResult is the stored result of a recipe generation job.
type RecipeResult struct {
	Recipe   *service.RecipeData `json:"recipe"`
	RecipeID string              `json:"recipe_id,omitempty"`
	Saved    bool                `json:"saved"`
}

// ChatResult is the stored result of a chat job.
type ChatResult struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ImageResult is the stored result of an image generation job.
type ImageResult struct {
	ImageURL string `json:"image_url"`
	RecipeID string `json:"recipe_id,omitempty"`
}

// GenerationProcessor executes recipe, chat and image jobs against the LLM
// and image platforms.
type GenerationProcessor struct {
	llm     service.ILLMService
	images  service.IImageService
	recipes service.IRecipeService
	logger  *zap.Logger
}

func NewGenerationProcessor(llm service.ILLMService, images service.IImageService, recipes service.IRecipeService, logger *zap.Logger) *GenerationProcessor {
	return &GenerationProcessor{
		llm:     llm,
		images:  images,
		recipes: recipes,
		logger:  logger,
	}
}

// Process dispatches on the job kind. It checks the cancellation flag
// between external calls; a call already in flight runs to completion.
func (p *GenerationProcessor) Process(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error) {
	switch job.Kind {
	case queue.KindRecipe:
		return p.processRecipe(ctx, job, cancelled, progress)
	case queue.KindChat:
		return p.processChat(ctx, job, cancelled, progress)
	case queue.KindImage:
		return p.processImage(ctx, job, cancelled, progress)
	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (p *GenerationProcessor) processRecipe(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error) {
	var payload queue.RecipePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode recipe payload: %w", err)
	}

	progress(10)
	raw, err := p.llm.GenerateRecipe(ctx, payload.Query, payload.DietaryPreferences, payload.Allergens)
	if err != nil {
		return nil, err
	}
	if cancelled() {
		return nil, ErrCancelled
	}
	progress(50)

	var data service.RecipeData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, apperrors.NewUpstream("model returned malformed recipe JSON", err)
	}
	if data.Category == "" {
		data.Category = service.CategorizeRecipe(data.Name, data.Description, data.Ingredients)
	}

	// The model sometimes omits macros entirely; a second, cheaper call
	// fills them in from the ingredient list.
	if data.Calories == 0 && len(data.Ingredients) > 0 {
		macros, err := p.llm.CalculateMacros(ctx, data.Ingredients)
		if err != nil {
			p.logger.Warn("macro calculation failed, keeping zeros",
				zap.String("request_id", job.ID), zap.Error(err))
		} else {
			data.Calories = macros.Calories
			data.Protein = macros.Protein
			data.Carbs = macros.Carbs
			data.Fat = macros.Fat
		}
		if cancelled() {
			return nil, ErrCancelled
		}
	}
	progress(80)

	result := RecipeResult{Recipe: &data}
	if payload.Save && job.OwnerUserID != "" {
		ownerID, err := uuid.Parse(job.OwnerUserID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id on job: %w", err)
		}
		saved, err := p.recipes.SaveGenerated(ctx, ownerID, &data)
		if err != nil {
			return nil, err
		}
		result.RecipeID = saved.ID.String()
		result.Saved = true
	}
	progress(100)

	return json.Marshal(result)
}

func (p *GenerationProcessor) processChat(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error) {
	var payload queue.ChatPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode chat payload: %w", err)
	}

	history := make([]service.Message, 0, len(payload.MessageHistory))
	for _, m := range payload.MessageHistory {
		history = append(history, service.Message{Role: m.Role, Content: m.Content})
	}

	progress(10)
	reply, err := p.llm.Chat(ctx, payload.Message, history)
	if err != nil {
		return nil, err
	}
	if cancelled() {
		return nil, ErrCancelled
	}
	progress(100)

	return json.Marshal(ChatResult{
		Reply:          reply,
		ConversationID: payload.ConversationID,
	})
}

func (p *GenerationProcessor) processImage(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error) {
	var payload queue.ImagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}

	progress(10)

	var url string
	var err error
	if payload.RecipeID != "" {
		recipeID, perr := uuid.Parse(payload.RecipeID)
		if perr != nil {
			return nil, fmt.Errorf("invalid recipe id on job: %w", perr)
		}
		recipe, gerr := p.recipes.Get(ctx, recipeID)
		if gerr != nil {
			return nil, gerr
		}
		url, err = p.images.GenerateRecipeImage(ctx, recipe.Name, recipe.Description)
		if err != nil {
			return nil, err
		}
		if cancelled() {
			return nil, ErrCancelled
		}
		progress(80)
		if err := p.recipes.SetImageURL(ctx, recipeID, url); err != nil {
			return nil, err
		}
	} else {
		url, err = p.images.GenerateImageFromPrompt(ctx, payload.Prompt, "1024x1024")
		if err != nil {
			return nil, err
		}
		if cancelled() {
			return nil, ErrCancelled
		}
	}
	progress(100)

	return json.Marshal(ImageResult{ImageURL: url, RecipeID: payload.RecipeID})
}
