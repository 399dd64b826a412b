package model

import (
	"time"
)

// EventType is the kind of a workflow event
type EventType string

const (
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete"
	EventRequestError    EventType = "request_error"

	// EventWorkflowClosed marks the explicit end of a workflow.
	// It is not a request and never counts as pending or finished.
	EventWorkflowClosed EventType = "workflow_closed"
)

// IsTerminal reports whether the event finishes a request.
func (t EventType) IsTerminal() bool {
	return t == EventRequestComplete || t == EventRequestError
}

// TimestampLayout is fixed width, so lexical order of formatted timestamps is time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// legacy records carry a naive UTC timestamp without zone
const naiveTimestampLayout = "2006-01-02T15:04:05.999999"

// Metadata keys used by workflow events
const (
	MetaModel         = "model"
	MetaTemperature   = "temperature"
	MetaMaxTokens     = "max_tokens"
	MetaMessageCount  = "message_count"
	MetaRequestNumber = "request_number"
	MetaStatus        = "status"
	MetaTokenUsage    = "token_usage"
	MetaCompletionID  = "completion_id"
	MetaFinishReason  = "finish_reason"
	MetaErrorType     = "error_type"
	MetaErrorMessage  = "error_message"
	MetaDurationMs    = "duration_ms"
	MetaRequestCount  = "request_count"

	StatusSuccess = "success"
	StatusError   = "error"
)

// WorkflowEvent is a single immutable audit record of a workflow
type WorkflowEvent struct {
	WorkflowID string         `json:"workflow_id"`
	RequestID  string         `json:"request_id"`
	EventType  EventType      `json:"event_type"`
	Timestamp  string         `json:"timestamp"`
	Model      string         `json:"model"`
	Metadata   map[string]any `json:"metadata"`
}

// FormatTimestamp formats t as an event timestamp in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// HasIdentity reports whether the event carries every field needed to fold it.
func (e WorkflowEvent) HasIdentity() bool {
	return e.WorkflowID != "" && e.RequestID != "" && e.EventType != ""
}

// Time parses the event timestamp.
func (e WorkflowEvent) Time() (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(naiveTimestampLayout, e.Timestamp, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// After reports whether e happened after other.
// Unparsable timestamps are compared as strings.
func (e WorkflowEvent) After(other WorkflowEvent) bool {
	t1, ok1 := e.Time()
	t2, ok2 := other.Time()
	if ok1 && ok2 {
		return t1.After(t2)
	}
	return e.Timestamp > other.Timestamp
}

// TokenUsage extracts the token usage stored in a request_complete event.
func (e WorkflowEvent) TokenUsage() (Usage, bool) {
	raw, ok := e.Metadata[MetaTokenUsage]
	if !ok {
		return Usage{}, false
	}
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return Usage{}, false
	}
	return Usage{
		PromptTokens:     toInt(m["prompt_tokens"]),
		CompletionTokens: toInt(m["completion_tokens"]),
		TotalTokens:      toInt(m["total_tokens"]),
	}, true
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return 0
}
