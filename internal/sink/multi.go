package sink

import (
	"context"

	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
)

var _ interfaces.EventSink = (Multi)(nil)

// Multi writes every event to all sinks, a failing sink does not stop the others
type Multi []interfaces.EventSink

func (m Multi) Append(ctx context.Context, event model.WorkflowEvent) error {
	errs := errm.NewList()
	for i, s := range m {
		if err := s.Append(ctx, event); err != nil {
			errs.Wrap(err, "failed to append event", "sink", i)
		}
	}
	return errs.Err()
}
