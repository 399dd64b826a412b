package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
)

var _ interfaces.EventSink = (*Memory)(nil)

// Memory keeps events in order of arrival
type Memory struct {
	mu     sync.Mutex
	events []model.WorkflowEvent
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(ctx context.Context, event model.WorkflowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the stored events.
func (s *Memory) Events() []model.WorkflowEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// ByType returns stored events of the given type.
func (s *Memory) ByType(t model.EventType) []model.WorkflowEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.WorkflowEvent
	for _, e := range s.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
