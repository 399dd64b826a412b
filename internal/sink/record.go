package sink

import (
	"bytes"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/errm"
)

// RecordTag marks event records in a log that may also hold other content
const RecordTag = "CURATRAK EVENT:"

var (
	// ErrNotRecord is returned for lines without the record tag
	ErrNotRecord = errm.New("line is not an event record")
	// ErrMalformedRecord is returned for tagged lines whose payload is not an event
	ErrMalformedRecord = errm.New("malformed event record")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeRecord renders an event as a single self-contained log line including the trailing newline.
func EncodeRecord(e model.WorkflowEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, errm.Wrap(err, "failed to encode event")
	}

	var buf bytes.Buffer
	buf.Grow(len(RecordTag) + len(payload) + 2)
	buf.WriteString(RecordTag)
	buf.WriteByte(' ')
	buf.Write(payload)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// ParseRecord decodes a log line written by EncodeRecord.
// Only the identity fields must be well formed, optional fields of an unexpected
// shape are dropped and the event is kept.
func ParseRecord(line string) (model.WorkflowEvent, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, RecordTag) {
		return model.WorkflowEvent{}, ErrNotRecord
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, RecordTag))

	var r record
	if err := json.UnmarshalFromString(payload, &r); err != nil {
		return model.WorkflowEvent{}, ErrMalformedRecord
	}

	e := model.WorkflowEvent{
		WorkflowID: r.WorkflowID,
		RequestID:  r.RequestID,
		EventType:  r.EventType,
	}
	decodeOptional(r.Timestamp, &e.Timestamp)
	decodeOptional(r.Model, &e.Model)
	decodeOptional(r.Metadata, &e.Metadata)

	return e, nil
}

// record is the on-disk shape of an event with lazily decoded optional fields
type record struct {
	WorkflowID string              `json:"workflow_id"`
	RequestID  string              `json:"request_id"`
	EventType  model.EventType     `json:"event_type"`
	Timestamp  jsoniter.RawMessage `json:"timestamp"`
	Model      jsoniter.RawMessage `json:"model"`
	Metadata   jsoniter.RawMessage `json:"metadata"`
}

func decodeOptional[T any](raw jsoniter.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}
