package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souschef-ai/backend/config"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// ImageGenerationRequest represents a request to the image generation API
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

// ImageGenerationResponse represents the response from the image API
type ImageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// ImageService handles image generation and storage operations
type ImageService struct {
	apiKey   string
	apiURL   string
	s3Config *config.S3Config
	client   *http.Client
	logger   *zap.Logger
}

// NewImageService creates a new ImageService instance
func NewImageService(apiKey, apiURL string, s3Config *config.S3Config, logger *zap.Logger) (*ImageService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("image API key must be set")
	}
	return &ImageService{
		apiKey:   apiKey,
		apiURL:   apiURL,
		s3Config: s3Config,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}, nil
}

// GenerateRecipeImage generates a plated-dish photo for a recipe and stores
// it, returning the public URL.
func (s *ImageService) GenerateRecipeImage(ctx context.Context, recipeName, description string) (string, error) {
	prompt := fmt.Sprintf(
		"A professional food photograph of %s. %s. Appetizing plating, natural light, shallow depth of field.",
		recipeName, description,
	)
	return s.GenerateImageFromPrompt(ctx, prompt, "1024x1024")
}

// GenerateImageFromPrompt generates an image and uploads it to S3.
func (s *ImageService) GenerateImageFromPrompt(ctx context.Context, prompt, size string) (string, error) {
	reqBody := ImageGenerationRequest{
		Model:          "dall-e-3",
		Prompt:         prompt,
		N:              1,
		Size:           size,
		Quality:        "standard",
		ResponseFormat: "b64_json",
	}

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
		return "", apperrors.NewUpstream("image generation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUpstream("failed to read image response", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("image request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", apperrors.NewUpstream(fmt.Sprintf("image generation failed with status %d", resp.StatusCode), nil)
	}

	var imgResp ImageGenerationResponse
	if err := json.Unmarshal(body, &imgResp); err != nil {
		return "", apperrors.NewUpstream("failed to decode image response", err)
	}
	if len(imgResp.Data) == 0 {
		return "", apperrors.NewUpstream("no image in response", nil)
	}

	imageData, err := base64.StdEncoding.DecodeString(imgResp.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("failed to decode image data: %w", err)
	}

	return s.uploadToS3(ctx, imageData)
}

// uploadToS3 stores the image bytes and returns the object's public URL.
func (s *ImageService) uploadToS3(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("recipe-images/%s.png", uuid.New().String())

	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", apperrors.NewUpstream("failed to upload image", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key), nil
}
