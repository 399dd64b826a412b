// Package tracker records workflow events around chat completion calls.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/curatrak/internal/metrics"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.Completer = (*Tracker)(nil)

// Tracker wraps a Completer and emits a start event before and a terminal event
// after every call. All requests of one Tracker share its workflow id.
// It is safe for concurrent use.
type Tracker struct {
	next    interfaces.Completer
	sink    interfaces.EventSink
	cfg     Config
	enabled bool
	metrics *metrics.Metrics
	log     logze.Logger

	workflowID string
	counter    atomic.Int64
	closed     atomic.Bool

	now   func() time.Time
	newID func() string
}

// Option customizes a Tracker
type Option func(*Tracker)

// WithMetrics records request and sink metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithWorkflowID replaces the generated workflow id.
func WithWorkflowID(id string) Option {
	return func(t *Tracker) { t.workflowID = id }
}

// WithClock replaces the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker with a fresh workflow id.
func New(next interfaces.Completer, sink interfaces.EventSink, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		next:       next,
		sink:       sink,
		cfg:        cfg,
		workflowID: uuid.NewString(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.enabled = t.cfg.IsEnabled() && t.sink != nil
	t.log = logze.With("component", "tracker", "workflow_id", t.workflowID)

	return t
}

// WorkflowID returns the id shared by all requests of this tracker.
func (t *Tracker) WorkflowID() string {
	return t.workflowID
}

// RequestCount returns the number of Create calls, it grows even when tracking is disabled.
func (t *Tracker) RequestCount() int64 {
	return t.counter.Load()
}

// Enabled reports whether events are emitted.
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// Create calls the wrapped completer. The response and the error of the wrapped
// call are returned unchanged, sink failures are only logged.
func (t *Tracker) Create(ctx context.Context, req model.CompletionRequest) (*model.CompletionResponse, error) {
	requestID := t.newID()
	number := t.counter.Add(1)
	requestModel := req.ModelOr(t.cfg.Model)

	t.emit(ctx, requestID, model.EventRequestStart, map[string]any{
		model.MetaModel:         requestModel,
		model.MetaTemperature:   req.GetTemperature(),
		model.MetaMaxTokens:     req.GetMaxTokens(),
		model.MetaMessageCount:  len(req.Messages),
		model.MetaRequestNumber: number,
	})

	t.metrics.RequestStarted()
	timer := abstract.StartTimer()

	resp, err := t.next.Create(ctx, req)

	elapsed := timer.ElapsedTime()
	if err != nil {
		t.metrics.RequestFinished(requestModel, model.StatusError, elapsed)
		t.emit(ctx, requestID, model.EventRequestError, map[string]any{
			model.MetaStatus:       model.StatusError,
			model.MetaErrorType:    errorType(err),
			model.MetaErrorMessage: err.Error(),
			model.MetaDurationMs:   elapsed.Milliseconds(),
		})
		return nil, err
	}

	t.metrics.RequestFinished(requestModel, model.StatusSuccess, elapsed)

	meta := map[string]any{
		model.MetaStatus:       model.StatusSuccess,
		model.MetaTokenUsage:   map[string]any{},
		model.MetaCompletionID: "",
		model.MetaFinishReason: "",
		model.MetaDurationMs:   elapsed.Milliseconds(),
	}
	if resp != nil {
		meta[model.MetaTokenUsage] = resp.Usage.Map()
		meta[model.MetaCompletionID] = resp.ID
		meta[model.MetaFinishReason] = resp.FirstFinishReason()
	}
	t.emit(ctx, requestID, model.EventRequestComplete, meta)

	return resp, nil
}

// Close emits the workflow_closed event once. Requests made after Close are still tracked.
func (t *Tracker) Close(ctx context.Context) error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.emit(ctx, t.newID(), model.EventWorkflowClosed, map[string]any{
		model.MetaRequestCount: t.counter.Load(),
	})
	return nil
}

func (t *Tracker) emit(ctx context.Context, requestID string, eventType model.EventType, metadata map[string]any) {
	if !t.enabled {
		return
	}

	event := model.WorkflowEvent{
		WorkflowID: t.workflowID,
		RequestID:  requestID,
		EventType:  eventType,
		Timestamp:  model.FormatTimestamp(t.now()),
		Model:      t.cfg.Model,
		Metadata:   metadata,
	}

	t.metrics.EventEmitted(string(eventType))

	// a cancelled request still gets its terminal event
	if err := t.sink.Append(context.WithoutCancel(ctx), event); err != nil {
		t.metrics.SinkFailed()
		t.log.Err(err, "failed to append workflow event", "event_type", eventType, "request_id", requestID)
	}
}

func errorType(err error) string {
	var typed interface{ ErrorType() string }
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	}
	return fmt.Sprintf("%T", err)
}
