package server

// HTTP surface: the Helius webhook sink, a test/replay endpoint and a
// liveness probe. The webhook follows the acknowledge-then-process pattern;
// the sender is answered as soon as the batch parses and never waits on
// Telegram or trade execution.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/pipeline"
)

// maxBodySize bounds webhook request bodies.
const maxBodySize = 10 * 1024 * 1024

// BatchProcessor is what the server needs from the ingestion pipeline.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, events []pipeline.RawEvent) pipeline.Report
}

// Server serves the webhook endpoints.
type Server struct {
	processor BatchProcessor
	// baseCtx outlives individual requests; async batch processing runs
	// under it so an acked webhook is not cancelled with its request.
	baseCtx context.Context
	wg      sync.WaitGroup
}

// New creates a server whose background processing lives under baseCtx.
func New(baseCtx context.Context, processor BatchProcessor) *Server {
	return &Server{processor: processor, baseCtx: baseCtx}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /test-webhook", s.handleTestWebhook)
	return s.logRequests(mux)
}

// ListenAndServe runs the server until ctx ends, then drains in-flight
// batches.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogSuccess("HTTP server listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.wg.Wait()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogDebug("Incoming request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Bot running!")
}

// handleWebhook accepts a JSON array of raw events. Malformed batches get a
// 400; a parseable batch is acknowledged with 200 immediately and processed
// in the background. Per-event failures never become HTTP errors.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	events, err := pipeline.ParseBatch(body)
	if err != nil {
		logging.LogWarn("Malformed webhook batch", zap.Error(err))
		http.Error(w, "expected a JSON array of events", http.StatusBadRequest)
		return
	}
	if len(events) == 0 {
		logging.LogWarn("Empty webhook batch")
		http.Error(w, "no events received", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processor.ProcessBatch(s.baseCtx, events)
	}()
}

// handleTestWebhook pushes one canned event through the pipeline
// synchronously and reports the outcome. Integration-testing aid.
func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	report := s.processor.ProcessBatch(r.Context(), []pipeline.RawEvent{pipeline.TestEvent()})

	type outcome struct {
		Address string `json:"address"`
		Status  string `json:"status"`
		Reason  string `json:"reason,omitempty"`
	}
	out := make([]outcome, 0, len(report.Results))
	for _, res := range report.Results {
		out = append(out, outcome{Address: res.Address, Status: res.Status.String(), Reason: res.Reason})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"results": out})
}
