package model

import "slices"

// WorkflowStatus is derived from the events of a workflow
type WorkflowStatus string

const (
	// WorkflowActive has at least one request without a terminal event
	WorkflowActive WorkflowStatus = "active"
	// WorkflowIdle has no pending requests but was never closed explicitly,
	// a new request may still arrive
	WorkflowIdle WorkflowStatus = "idle"
	// WorkflowClosed has no pending requests and an explicit close event
	WorkflowClosed WorkflowStatus = "closed"
)

// WorkflowState is a fold over the events of one workflow.
// It is recomputed from the log on every scan and never persisted.
type WorkflowState struct {
	WorkflowID string
	Requests   map[string]struct{}
	Finished   map[string]struct{}
	Starts     int
	Completes  int
	Errors     int
	Closed     bool
	LastEvent  *WorkflowEvent
}

// NewWorkflowState returns an empty state for a workflow.
func NewWorkflowState(workflowID string) *WorkflowState {
	return &WorkflowState{
		WorkflowID: workflowID,
		Requests:   make(map[string]struct{}),
		Finished:   make(map[string]struct{}),
	}
}

// Apply folds an event into the state. Events of other workflows are ignored.
func (s *WorkflowState) Apply(e WorkflowEvent) {
	if e.WorkflowID != s.WorkflowID {
		return
	}

	switch {
	case e.EventType == EventWorkflowClosed:
		s.Closed = true
	default:
		s.Requests[e.RequestID] = struct{}{}
		switch e.EventType {
		case EventRequestStart:
			s.Starts++
		case EventRequestComplete:
			s.Completes++
			s.Finished[e.RequestID] = struct{}{}
		case EventRequestError:
			s.Errors++
			s.Finished[e.RequestID] = struct{}{}
		}
	}

	if s.LastEvent == nil || !s.LastEvent.After(e) {
		ev := e
		s.LastEvent = &ev
	}
}

// Pending returns request ids that were seen without a terminal event, sorted.
func (s *WorkflowState) Pending() []string {
	out := make([]string, 0)
	for id := range s.Requests {
		if _, ok := s.Finished[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (s *WorkflowState) PendingCount() int {
	return len(s.Requests) - len(s.Finished)
}

// Total is the number of distinct requests seen.
func (s *WorkflowState) Total() int {
	return len(s.Requests)
}

// Completed is the number of distinct requests with a terminal event.
func (s *WorkflowState) Completed() int {
	return len(s.Finished)
}

func (s *WorkflowState) IsActive() bool {
	return s.PendingCount() > 0
}

func (s *WorkflowState) Status() WorkflowStatus {
	switch {
	case s.IsActive():
		return WorkflowActive
	case s.Closed:
		return WorkflowClosed
	default:
		return WorkflowIdle
	}
}
