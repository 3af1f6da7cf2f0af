// Package server is the invocation boundary: it translates an HTTP
// request naming a chain and its inputs into a registry lookup and an
// executor run, and maps failures onto status codes (400 bad request,
// 404 unknown chain, 500 compilation or execution failure).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chainforge/internal/chainerr"
	"chainforge/internal/executor"
	"chainforge/internal/history"
	"chainforge/internal/llm"
	"chainforge/internal/logging"
	"chainforge/internal/registry"
)

// Server serves chain invocations over HTTP.
type Server struct {
	registry *registry.Registry
	client   llm.Client
	history  *history.Store // nil when history is disabled
	timeout  time.Duration
	http     *http.Server
}

// New creates a server. hist may be nil.
func New(addr string, reg *registry.Registry, client llm.Client, hist *history.Store, requestTimeout time.Duration) *Server {
	s := &Server{
		registry: reg,
		client:   client,
		history:  hist,
		timeout:  requestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/invoke", s.handleInvoke)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// invokeRequest is the invocation payload.
type invokeRequest struct {
	ChainName string            `json:"chain_name"`
	Inputs    map[string]string `json:"inputs"`
}

// errorResponse is the error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryServer)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Infow("shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	log := logging.Get(logging.CategoryServer)
	requestID := uuid.NewString()
	start := time.Now()

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChainName == "" {
		writeError(w, http.StatusBadRequest, "missing 'chain_name' in request")
		return
	}

	log.Infow("invocation received", "request", requestID, "chain", req.ChainName)

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	chain, err := s.registry.Resolve(ctx, req.ChainName)
	if err != nil {
		s.writeFailure(w, requestID, req.ChainName, start, err)
		return
	}

	if len(req.Inputs) == 0 && len(chain.Inputs) > 0 {
		writeError(w, http.StatusBadRequest, "missing or empty 'inputs' in request")
		return
	}

	outputs, err := executor.Run(ctx, chain, req.Inputs, s.client)
	if err != nil {
		s.writeFailure(w, requestID, req.ChainName, start, err)
		return
	}

	s.record(req.ChainName, "ok", "", time.Since(start), outputs)
	log.Infow("invocation succeeded",
		"request", requestID, "chain", req.ChainName, "duration", time.Since(start))
	writeJSON(w, http.StatusOK, outputs)
}

// writeFailure maps the error taxonomy onto a status code, records the
// run, and responds.
func (s *Server) writeFailure(w http.ResponseWriter, requestID, chain string, start time.Time, err error) {
	status := http.StatusInternalServerError
	switch chainerr.CategoryOf(err) {
	case chainerr.CategoryBadRequest:
		status = http.StatusBadRequest
	case chainerr.CategoryNotFound:
		status = http.StatusNotFound
	}

	var failedStep string
	var ce *chainerr.Error
	if errors.As(err, &ce) {
		failedStep = ce.Step
	}
	s.record(chain, "error", failedStep, time.Since(start), nil)

	logging.Get(logging.CategoryServer).Warnw("invocation failed",
		"request", requestID, "chain", chain, "status", status, "error", err)
	writeError(w, status, err.Error())
}

func (s *Server) record(chain, status, failedStep string, duration time.Duration, outputs map[string]string) {
	if s.history == nil {
		return
	}
	run := history.Run{
		ID:         uuid.NewString(),
		Chain:      chain,
		Status:     status,
		FailedStep: failedStep,
		Duration:   duration,
		Outputs:    outputs,
	}
	if err := s.history.Record(context.Background(), run); err != nil {
		logging.Get(logging.CategoryHistory).Warnw("failed to record run", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
