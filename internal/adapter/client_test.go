package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/maxbolgarin/curatrak/internal/model"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "test-key", Endpoint: endpoint})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{Endpoint: "http://localhost"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "api_key" {
		t.Fatalf("field = %q, want api_key", cfgErr.Field)
	}
}

func TestNewRejectsRelativeEndpoint(t *testing.T) {
	_, err := New(Config{APIKey: "k", Endpoint: "/models/chat/completions"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "endpoint" {
		t.Fatalf("expected endpoint ConfigError, got %v", err)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://x.ai/models/chat/completions", "https://x.ai/models/chat/completions?api-version=v1"},
		{"https://x.ai/c?api-version=old", "https://x.ai/c?api-version=old"},
		{"https://x.ai/c?foo=bar", "https://x.ai/c?foo=bar&api-version=v1"},
		{"https://x.ai/c?z=1&a=%7e", "https://x.ai/c?z=1&a=%7e&api-version=v1"},
		{"https://x.ai/c?", "https://x.ai/c?api-version=v1"},
		{"https://x.ai/c#frag", "https://x.ai/c?api-version=v1#frag"},
	}
	for _, tt := range tests {
		got, err := BuildURL(tt.endpoint, "v1")
		if err != nil {
			t.Fatalf("BuildURL(%q): %v", tt.endpoint, err)
		}
		if got != tt.want {
			t.Errorf("BuildURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestCreateSendsWireRequest(t *testing.T) {
	var gotBody chatCompletionRequest
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.URL.Query().Get("api-version")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1", "created": 1714550400, "model": "grok-3-remote",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Paris"}, "finish_reason": "length"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/models/chat/completions")
	topP := 0.5
	resp, err := c.Create(context.Background(), model.CompletionRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "capital of France?"}},
		TopP:     &topP,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotVersion != DefaultAPIVersion {
		t.Errorf("api-version = %q", gotVersion)
	}
	if gotBody.Model != DefaultModel || gotBody.MaxCompletionTokens != 2048 || gotBody.Temperature != 0.7 ||
		gotBody.TopP != 0.5 || gotBody.FrequencyPenalty != 0 || gotBody.PresencePenalty != 0 {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Errorf("unexpected messages: %+v", gotBody.Messages)
	}

	if resp.ID != "cmpl-1" || resp.Object != model.ObjectChatCompletion || resp.Created != 1714550400 || resp.Model != "grok-3-remote" {
		t.Errorf("unexpected response header fields: %+v", resp)
	}
	if resp.Usage != (model.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Content() != "Paris" || resp.FirstFinishReason() != "length" {
		t.Errorf("choice = %+v", resp.Choices)
	}
}

func TestCreateAppliesResponseDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": "hi"}}, {"index": 1, "message": {"role": "assistant", "content": "yo"}}]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Create(context.Background(), model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: "hi"}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.ID != "" || resp.Created != 0 || resp.Model != DefaultModel || resp.Usage != (model.Usage{}) {
		t.Errorf("defaults not applied: %+v", resp)
	}
	if len(resp.Choices) != 2 || resp.Choices[0].FinishReason != "stop" || resp.Choices[1].Index != 1 {
		t.Errorf("choices = %+v", resp.Choices)
	}
}

func TestCreateRemoteError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "rate limited", "type": "rate_limit"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Create(context.Background(), model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: "hi"}))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Kind != KindRemote || reqErr.StatusCode != http.StatusTooManyRequests || reqErr.Message != "rate limited" {
		t.Errorf("unexpected error: %+v", reqErr)
	}
	if hits.Load() != 1 {
		t.Errorf("endpoint called %d times, want a single attempt", hits.Load())
	}
}

func TestCreateRemoteErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Create(context.Background(), model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: "hi"}))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != KindRemote || reqErr.StatusCode != 500 {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reqErr.Error(), "upstream exploded") {
		t.Errorf("error text = %q", reqErr.Error())
	}
}

func TestCreateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newTestClient(t, endpoint).Create(context.Background(), model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: "hi"}))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if reqErr.ErrorType() != "transport_failure" {
		t.Errorf("error type = %q", reqErr.ErrorType())
	}
}

func TestCreateMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":       "<html>oops</html>",
		"no choices":     `{"id": "x", "choices": []}`,
		"negative usage": `{"choices": [{"message": {"role": "assistant", "content": "x"}}], "usage": {"prompt_tokens": -1}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			resp, err := newTestClient(t, srv.URL).Create(context.Background(), model.NewRequest(model.ChatMessage{Role: model.RoleUser, Content: "hi"}))
			var reqErr *RequestError
			if !errors.As(err, &reqErr) || reqErr.Kind != KindMalformed {
				t.Fatalf("expected malformed response error, got %v", err)
			}
			if resp != nil {
				t.Fatalf("expected nil response, got %+v", resp)
			}
		})
	}
}

func TestStaticCompleter(t *testing.T) {
	resp, err := NewStatic("grok-3").Create(context.Background(), model.NewRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Usage.TotalTokens != 70 || resp.FirstFinishReason() != "stop" || resp.Model != "grok-3" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStatic("grok-3").Create(ctx, model.NewRequest()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
