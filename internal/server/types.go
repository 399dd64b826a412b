package server

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/curatrak/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// chatRequest is the body of an OpenAI chat completion call
type chatRequest struct {
	Model               string              `json:"model"`
	Messages            []model.ChatMessage `json:"messages"`
	Temperature         *float64            `json:"temperature,omitempty"`
	MaxTokens           *int                `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int                `json:"max_completion_tokens,omitempty"`
	TopP                *float64            `json:"top_p,omitempty"`
	FrequencyPenalty    *float64            `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64            `json:"presence_penalty,omitempty"`
	Stream              bool                `json:"stream,omitempty"`
}

func (r chatRequest) toCompletionRequest() model.CompletionRequest {
	maxTokens := r.MaxCompletionTokens
	if maxTokens == nil {
		maxTokens = r.MaxTokens
	}
	return model.CompletionRequest{
		Messages:         r.Messages,
		Model:            r.Model,
		Temperature:      r.Temperature,
		MaxTokens:        maxTokens,
		TopP:             r.TopP,
		FrequencyPenalty: r.FrequencyPenalty,
		PresencePenalty:  r.PresencePenalty,
	}
}

type modelList struct {
	Object string      `json:"object"`
	Data   []modelInfo `json:"data"`
}

type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
