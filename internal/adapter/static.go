package adapter

import (
	"context"
	"time"

	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
)

var _ interfaces.Completer = (*Static)(nil)

// Static is an offline completer that returns a canned answer.
// It is used by the verify command in mock mode.
type Static struct {
	Model   string
	Content string
	Usage   model.Usage
}

// NewStatic returns a completer answering every request with the same message.
func NewStatic(modelName string) *Static {
	return &Static{
		Model:   modelName,
		Content: "This is a mock response for demonstration purposes.",
		Usage:   model.Usage{PromptTokens: 50, CompletionTokens: 20, TotalTokens: 70},
	}
}

func (s *Static) Create(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError(err)
	}
	return &model.CompletionResponse{
		ID:      "mock-response-id",
		Object:  model.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   req.ModelOr(s.Model),
		Choices: []model.Choice{{
			Index:        0,
			Message:      model.ChatMessage{Role: model.RoleAssistant, Content: s.Content},
			FinishReason: model.FinishReasonStop,
		}},
		Usage: s.Usage,
	}, nil
}
