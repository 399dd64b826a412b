package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maxbolgarin/curatrak/internal/model"
)

func TestHTTPAppend(t *testing.T) {
	var got model.WorkflowEvent
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := NewHTTP(HTTPConfig{URL: srv.URL + "/", APIKey: "track-key"})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if err := s.Append(context.Background(), testEvent("r1", model.EventRequestComplete)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if gotPath != "/api/workflows/events" || gotAuth != "Bearer track-key" {
		t.Fatalf("path = %q, auth = %q", gotPath, gotAuth)
	}
	if got.RequestID != "r1" || got.EventType != model.EventRequestComplete {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestHTTPAppendStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewHTTP(HTTPConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	err = s.Append(context.Background(), testEvent("r1", model.EventRequestStart))
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("expected error naming status 503, got %v", err)
	}
}
