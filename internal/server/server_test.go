package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/curatrak/internal/tracker"
)

func newTestServer(t *testing.T, completer interfaces.Completer) *Server {
	t.Helper()
	s, err := New(Config{}, completer, "grok-3", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestChatCompletionsThroughTracker(t *testing.T) {
	mem := sink.NewMemory()
	tr := tracker.New(adapter.NewStatic("grok-3"), mem, tracker.Config{Enabled: tracker.Enable(true), Model: "grok-3"})
	s := newTestServer(t, tr)

	body := `{"model":"grok-3-mini","messages":[{"role":"user","content":"hi"}],"max_tokens":100,"temperature":0.2}`
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, httptest.NewRequest(http.MethodPost, chatCompletionsPath, strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp model.CompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Model != "grok-3-mini" || resp.Content() == "" || resp.Usage.TotalTokens != 70 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	starts := mem.ByType(model.EventRequestStart)
	if len(starts) != 1 || len(mem.ByType(model.EventRequestComplete)) != 1 {
		t.Fatalf("unexpected events: %+v", mem.Events())
	}
	if starts[0].Metadata[model.MetaMaxTokens] != 100 || starts[0].Metadata[model.MetaTemperature] != 0.2 {
		t.Fatalf("request parameters not forwarded: %v", starts[0].Metadata)
	}
}

func TestChatCompletionsRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, adapter.NewStatic("grok-3"))

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{name: "stream", method: http.MethodPost, body: `{"messages":[{"role":"user","content":"hi"}],"stream":true}`, status: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, body: `{"messages":`, status: http.StatusBadRequest},
		{name: "no messages", method: http.MethodPost, body: `{"model":"grok-3"}`, status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, body: ``, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleChatCompletions(rec, httptest.NewRequest(tt.method, chatCompletionsPath, strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if e := decodeError(t, rec); e.Error.Type != errTypeInvalidRequest || e.Error.Message == "" {
				t.Fatalf("unexpected error body: %+v", e)
			}
		})
	}
}

func TestChatCompletionsUpstreamFailure(t *testing.T) {
	remote := &adapter.RequestError{Kind: adapter.KindRemote, StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	s := newTestServer(t, interfaces.CompleterFunc(func(context.Context, model.CompletionRequest) (*model.CompletionResponse, error) {
		return nil, remote
	}))

	rec := httptest.NewRecorder()
	body := `{"messages":[{"role":"user","content":"hi"}]}`
	s.handleChatCompletions(rec, httptest.NewRequest(http.MethodPost, chatCompletionsPath, strings.NewReader(body)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Error.Type != string(adapter.KindRemote) || !strings.Contains(e.Error.Message, "rate limited") {
		t.Fatalf("unexpected error body: %+v", e)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"remote client error", &adapter.RequestError{Kind: adapter.KindRemote, StatusCode: 401}, 401, "remote_error"},
		{"remote server error", &adapter.RequestError{Kind: adapter.KindRemote, StatusCode: 503}, http.StatusBadGateway, "remote_error"},
		{"transport", &adapter.RequestError{Kind: adapter.KindTransport, Err: context.DeadlineExceeded}, http.StatusBadGateway, "transport_failure"},
		{"malformed", &adapter.RequestError{Kind: adapter.KindMalformed}, http.StatusBadGateway, "malformed_response"},
		{"unknown", errors.New("boom"), http.StatusBadGateway, errTypeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, typ := errorStatus(tt.err)
			if status != tt.status || typ != tt.typ {
				t.Fatalf("got %d %s, want %d %s", status, typ, tt.status, tt.typ)
			}
		})
	}
}

func TestModels(t *testing.T) {
	s := newTestServer(t, adapter.NewStatic("grok-3"))

	rec := httptest.NewRecorder()
	s.handleModels(rec, httptest.NewRequest(http.MethodGet, modelsPath, nil))

	var list modelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || len(list.Data) != 1 || list.Data[0].ID != "grok-3" {
		t.Fatalf("unexpected models response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.PrepareAndValidate(); err != nil {
		t.Fatalf("PrepareAndValidate: %v", err)
	}
	if cfg.Address != defaultAddress || cfg.Timeout != defaultTimeout {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg = Config{EnableHTTPS: true}
	if err := cfg.PrepareAndValidate(); err == nil {
		t.Fatal("expected error for https without certificate")
	}
}
