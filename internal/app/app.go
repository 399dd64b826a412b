package app

import (
	"context"
	"fmt"

	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/config"
	"github.com/maxbolgarin/curatrak/internal/metrics"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/curatrak/internal/monitor"
	"github.com/maxbolgarin/curatrak/internal/server"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/curatrak/internal/tracker"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// Curatrak wires the completion client, the event sink and the workflow tracker
type Curatrak struct {
	client  interfaces.Completer
	sink    interfaces.EventSink
	metrics *metrics.Metrics
	tracker *tracker.Tracker

	cfg config.Config
	log logze.Logger
}

// Option customizes the service
type Option func(*options)

type options struct {
	completer interfaces.Completer
}

// WithCompleter replaces the remote endpoint client, e.g. with adapter.Static.
func WithCompleter(c interfaces.Completer) Option {
	return func(o *options) { o.completer = c }
}

// New creates the service and registers the workflow close on shutdown
func New(ctx contem.Context, cfg config.Config, opts ...Option) (*Curatrak, error) {
	service, err := newCuratrak(cfg, opts...)
	if err != nil {
		return nil, err
	}
	ctx.Add(service.Close)

	return service, nil
}

func newCuratrak(cfg config.Config, opts ...Option) (*Curatrak, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	service := &Curatrak{
		cfg:     cfg,
		metrics: metrics.New(),
		log:     logze.With("component", "app"),
	}

	if err := service.init(cfg, o); err != nil {
		// keeps *adapter.ConfigError reachable with errors.As
		return nil, fmt.Errorf("failed to initialize service: %w", err)
	}

	return service, nil
}

func (s *Curatrak) init(cfg config.Config, o options) (err error) {
	// Create completion client
	s.client = o.completer
	if s.client == nil {
		s.client, err = adapter.New(cfg.Agent)
		if err != nil {
			return fmt.Errorf("failed to create completion client: %w", err)
		}
	}

	// Create event sink
	s.sink, err = sink.New(cfg.Sink)
	if err != nil {
		return errm.Wrap(err, "failed to create event sink")
	}

	// Create tracker - every call goes through it
	s.tracker = tracker.New(s.client, s.sink, cfg.Tracking, tracker.WithMetrics(s.metrics))

	s.log.Info("workflow tracking initialized",
		"workflow_id", s.tracker.WorkflowID(),
		"enabled", s.tracker.Enabled(),
		"sink", cfg.Sink.Type,
	)

	return nil
}

// Tracker returns the tracked completer.
func (s *Curatrak) Tracker() *tracker.Tracker {
	return s.tracker
}

// Close emits the workflow close event.
func (s *Curatrak) Close(ctx context.Context) error {
	if err := s.tracker.Close(ctx); err != nil {
		return errm.Wrap(err, "failed to close workflow")
	}
	s.log.Info("workflow closed", "workflow_id", s.tracker.WorkflowID(), "requests", s.tracker.RequestCount())
	return nil
}

// Serve runs the OpenAI-compatible proxy until ctx is done.
func (s *Curatrak) Serve(ctx contem.Context) error {
	srv, err := server.New(s.cfg.Server, s.tracker, s.cfg.Tracking.Model, s.metrics)
	if err != nil {
		return errm.Wrap(err, "failed to create server")
	}
	ctx.Add(srv.Stop)

	if err := srv.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start server")
	}
	return nil
}

// Ask sends a single user message through the tracker.
func (s *Curatrak) Ask(ctx context.Context, prompt string) (*model.CompletionResponse, error) {
	resp, err := s.tracker.Create(ctx, model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: prompt}))
	if err != nil {
		return nil, errm.Wrap(err, "completion failed")
	}
	return resp, nil
}

// VerifyReport summarizes a verification run as seen in the event log
type VerifyReport struct {
	WorkflowID string
	LogFile    string
	Calls      int
	Starts     int
	Completes  int
	Errors     int
	Pending    int
	Status     model.WorkflowStatus
}

// OK reports whether every call was logged with a start and a completion.
func (r VerifyReport) OK() bool {
	return r.Starts == r.Calls && r.Completes == r.Calls && r.Pending == 0
}

// Verify makes calls requests, closes the workflow and reads the event log back.
func (s *Curatrak) Verify(ctx context.Context, calls int) (VerifyReport, error) {
	report := VerifyReport{
		WorkflowID: s.tracker.WorkflowID(),
		LogFile:    s.cfg.Sink.File.Path,
		Calls:      calls,
	}
	if s.cfg.Sink.Type == sink.TypeHTTP {
		return report, errm.Errorf("verification reads the local log, sink type %q has none", s.cfg.Sink.Type)
	}

	for i := range calls {
		prompt := verifyPrompts[i%len(verifyPrompts)]
		if _, err := s.Ask(ctx, prompt); err != nil {
			s.log.Err(err, "verification call failed", "call", i+1)
		}
	}
	if err := s.Close(ctx); err != nil {
		return report, err
	}

	states, _, err := monitor.ScanFiles(ctx, sink.SegmentPaths(s.cfg.Sink.File.Path, s.cfg.Sink.File.MaxBackups))
	if err != nil {
		return report, errm.Wrap(err, "failed to scan event log")
	}

	st, ok := states[report.WorkflowID]
	if !ok {
		return report, errm.Errorf("workflow %s not found in %s", report.WorkflowID, report.LogFile)
	}
	report.Starts = st.Starts
	report.Completes = st.Completes
	report.Errors = st.Errors
	report.Pending = st.PendingCount()
	report.Status = st.Status()

	if !report.OK() {
		return report, errm.Errorf("expected %d starts and completions, got %d starts, %d completions, %d errors",
			calls, report.Starts, report.Completes, report.Errors)
	}

	return report, nil
}

var verifyPrompts = []string{
	"What is 2+2?",
	"Name one primary color.",
	"Reply with the word ok.",
}
