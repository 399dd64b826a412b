package interfaces

import (
	"context"

	"github.com/maxbolgarin/curatrak/internal/model"
)

// Completer defines the interface for calling a chat completion endpoint
type Completer interface {
	Create(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error)
}

// EventSink defines the interface for the destination of workflow events
type EventSink interface {
	Append(ctx context.Context, event model.WorkflowEvent) error
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error)

func (f CompleterFunc) Create(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error) {
	return f(ctx, req)
}
