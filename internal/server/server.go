// Package server exposes a tracked completer as an OpenAI-compatible HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/metrics"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
)

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeUpstream       = "upstream_error"
)

// Server proxies chat completion calls to the wrapped completer
type Server struct {
	completer interfaces.Completer
	metrics   *metrics.Metrics
	modelName string
	config    Config
	log       logze.Logger
	server    *servex.Server
}

// New creates a proxy server for the completer. Metrics may be nil, then /metrics is not served.
func New(cfg Config, completer interfaces.Completer, modelName string, m *metrics.Metrics) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	h := &Server{
		completer: completer,
		metrics:   m,
		modelName: modelName,
		config:    cfg,
		log:       log,
		server:    server,
	}

	server.HandleFunc(chatCompletionsPath, h.handleChatCompletions)
	server.HandleFunc(modelsPath, h.handleModels)
	if m != nil {
		server.HandleFunc(metricsPath, m.Handler().ServeHTTP)
	}

	return h, nil
}

// Start runs the server until ctx is done
func (h *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if h.config.EnableHTTPS {
			errCh <- h.server.StartHTTPS(h.config.Address)
			return
		}
		errCh <- h.server.StartHTTP(h.config.Address)
	}()

	h.log.Info("proxy server started", "address", h.config.Address, "model", h.modelName)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errm.Wrap(err, "failed to start server")
		}
		<-ctx.Done()
		return nil
	}
}

// Stop stops the proxy server
func (h *Server) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errTypeInvalidRequest, "method not allowed")
		return
	}

	body, err := servex.NewContext(w, r).Read()
	if err != nil {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "failed to read request body")
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Stream {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "streaming is not supported")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "messages must not be empty")
		return
	}

	resp, err := h.completer.Create(r.Context(), req.toCompletionRequest())
	if err != nil {
		status, errType := errorStatus(err)
		h.log.Warn("completion failed", "status", status, "error_type", errType, "error", err)
		writeError(w, status, errType, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errTypeInvalidRequest, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, modelList{
		Object: "list",
		Data:   []modelInfo{{ID: h.modelName, Object: "model", OwnedBy: "curatrak"}},
	})
}

// errorStatus maps a completer failure to a response status.
// Client errors of the endpoint keep their status, everything else is a bad gateway.
func errorStatus(err error) (int, string) {
	var reqErr *adapter.RequestError
	if !errors.As(err, &reqErr) {
		return http.StatusBadGateway, errTypeUpstream
	}
	if reqErr.Kind == adapter.KindRemote && reqErr.StatusCode >= 400 && reqErr.StatusCode < 500 {
		return reqErr.StatusCode, string(reqErr.Kind)
	}
	return http.StatusBadGateway, string(reqErr.Kind)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":{"message":"cannot encode response","type":"server_error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Message: msg, Type: errType}})
}
