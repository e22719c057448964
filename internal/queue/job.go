// Package queue provides the durable generation job queue. Redis holds the
// authoritative JobState once a request is accepted; workers are the only
// writers of state transitions.
package queue

import (
	"encoding/json"
	"time"
)

// Kind identifies the type of generation work a job carries.
type Kind string

const (
	KindRecipe Kind = "recipe"
	KindChat   Kind = "chat"
	KindImage  Kind = "image"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is one unit of asynchronous generation work.
type Job struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Payload     []byte    `json:"payload"`
	Result      []byte    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	Progress    int       `json:"progress"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	OwnerUserID string    `json:"owner_user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecipePayload is the payload of a KindRecipe job.
type RecipePayload struct {
	Query              string   `json:"query"`
	Save               bool     `json:"save"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	Allergens          []string `json:"allergens,omitempty"`
}

// ChatPayload is the payload of a KindChat job.
type ChatPayload struct {
	Message        string        `json:"message"`
	ConversationID string        `json:"conversation_id,omitempty"`
	MessageHistory []ChatMessage `json:"message_history,omitempty"`
}

// ChatMessage mirrors one turn of history carried with a chat job.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImagePayload is the payload of a KindImage job.
type ImagePayload struct {
	RecipeID string `json:"recipe_id"`
	Prompt   string `json:"prompt"`
}

// Stats is an aggregate snapshot of queue health.
type Stats struct {
	Queued  int64 `json:"queued"`
	Active  int64 `json:"active"`
	Delayed int64 `json:"delayed"`
}

// EncodePayload marshals a payload struct for storage on a Job.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
