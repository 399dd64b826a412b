package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/config"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/curatrak/internal/tracker"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Tracking: tracker.Config{Enabled: tracker.Enable(true), Model: "grok-3"},
		Sink: sink.Config{
			Type: sink.TypeFile,
			File: sink.FileConfig{Path: filepath.Join(t.TempDir(), "workflows.log")},
		},
	}
}

func TestVerifyWithStaticCompleter(t *testing.T) {
	service, err := newCuratrak(testConfig(t), WithCompleter(adapter.NewStatic("grok-3")))
	if err != nil {
		t.Fatalf("newCuratrak: %v", err)
	}

	report, err := service.Verify(context.Background(), 3)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK() || report.Starts != 3 || report.Completes != 3 || report.Status != model.WorkflowClosed {
		t.Fatalf("unexpected report: %+v", report)
	}
	if service.Tracker().RequestCount() != 3 {
		t.Fatalf("request count = %d", service.Tracker().RequestCount())
	}
}

func TestVerifyReportsFailures(t *testing.T) {
	failing := interfaces.CompleterFunc(func(context.Context, model.CompletionRequest) (*model.CompletionResponse, error) {
		return nil, errors.New("connection refused")
	})
	service, err := newCuratrak(testConfig(t), WithCompleter(failing))
	if err != nil {
		t.Fatalf("newCuratrak: %v", err)
	}

	report, err := service.Verify(context.Background(), 2)
	if err == nil || !strings.Contains(err.Error(), "expected 2 starts and completions, got 2 starts, 0 completions, 2 errors") {
		t.Fatalf("expected verification error with counts, got %v", err)
	}
	if report.Starts != 2 || report.Errors != 2 || report.Pending != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := newCuratrak(testConfig(t))

	var cfgErr *adapter.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "api_key" {
		t.Fatalf("expected api_key config error, got %v", err)
	}
}

func TestAsk(t *testing.T) {
	service, err := newCuratrak(testConfig(t), WithCompleter(adapter.NewStatic("grok-3")))
	if err != nil {
		t.Fatalf("newCuratrak: %v", err)
	}

	resp, err := service.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Content() == "" || resp.Model != "grok-3" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
