package model

import "github.com/maxbolgarin/lang"

// Defaults applied to a CompletionRequest when a parameter is not set
const (
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 2048
	DefaultTopP             = 1.0
	DefaultFrequencyPenalty = 0.0
	DefaultPresencePenalty  = 0.0

	ObjectChatCompletion = "chat.completion"
	FinishReasonStop     = "stop"
)

// Role is a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message of a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a chat completion call in the canonical shape.
// Nil parameters fall back to the Default* constants, empty Model falls back
// to the model configured for the client.
type CompletionRequest struct {
	Messages         []ChatMessage `json:"messages"`
	Model            string        `json:"model,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
}

// NewRequest creates a request with default parameters.
func NewRequest(messages ...ChatMessage) CompletionRequest {
	return CompletionRequest{Messages: messages}
}

// ModelOr returns the requested model or def if none was set.
func (r CompletionRequest) ModelOr(def string) string {
	return lang.Check(r.Model, def)
}

func (r CompletionRequest) GetTemperature() float64 {
	return valueOr(r.Temperature, DefaultTemperature)
}

func (r CompletionRequest) GetMaxTokens() int {
	return valueOr(r.MaxTokens, DefaultMaxTokens)
}

func (r CompletionRequest) GetTopP() float64 {
	return valueOr(r.TopP, DefaultTopP)
}

func (r CompletionRequest) GetFrequencyPenalty() float64 {
	return valueOr(r.FrequencyPenalty, DefaultFrequencyPenalty)
}

func (r CompletionRequest) GetPresencePenalty() float64 {
	return valueOr(r.PresencePenalty, DefaultPresencePenalty)
}

// CompletionResponse is a chat completion result in the OpenAI-compatible shape
type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// FirstFinishReason returns the finish reason of the first choice or an empty
// string when there are no choices.
func (r *CompletionResponse) FirstFinishReason() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].FinishReason
}

// Content returns the content of the first choice message.
func (r *CompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage records token accounting of a completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// IsValid reports whether all counters are non-negative.
func (u Usage) IsValid() bool {
	return u.PromptTokens >= 0 && u.CompletionTokens >= 0 && u.TotalTokens >= 0
}

// Map returns usage as a plain mapping, the shape stored in event metadata.
func (u Usage) Map() map[string]any {
	return map[string]any{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
}

func valueOr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}
