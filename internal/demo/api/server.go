// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the public-facing HTTP surface for the corro
// demo: POST /submit for the front-style submitter, GET /metrics for
// Prometheus, and POST /shutdown for coordinated drain.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corro"
	icore "corro/internal/demo/core"
	"corro/internal/demo/persistence"
	"corro/internal/demo/telemetry"
)

// Server handles the HTTP requests for the demo.
type Server struct {
	proc    *corro.Processor[icore.Job, icore.Result]
	metrics *telemetry.Metrics
	audit   persistence.AuditSink

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewServer creates and configures a new API server.
func NewServer(proc *corro.Processor[icore.Job, icore.Result], metrics *telemetry.Metrics, audit persistence.AuditSink) *Server {
	return &Server{proc: proc, metrics: metrics, audit: audit, shutdownCh: make(chan struct{})}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/shutdown", s.handleShutdown)
}

type submitRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleSubmit is the front-style submit(request) -> response handler.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	s.metrics.ObserveSubmitted()
	start := time.Now()

	result, err := s.proc.Submit(r.Context(), icore.Job{ID: req.ID, Text: req.Text})

	s.recordOutcome(req.ID, err, time.Since(start))

	if err != nil {
		s.writeFailure(w, req.ID, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(submitResponse{ID: result.ID, Output: result.Output})
}

func (s *Server) writeFailure(w http.ResponseWriter, id string, err error) {
	status := http.StatusInternalServerError
	var cerr *corro.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case corro.KindUnavailable:
			status = http.StatusServiceUnavailable
		case corro.KindTimeout:
			status = http.StatusGatewayTimeout
		case corro.KindShutdown:
			status = http.StatusServiceUnavailable
		case corro.KindNotCorrelated:
			status = http.StatusConflict
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(submitResponse{ID: id, Error: err.Error()})
}

func (s *Server) recordOutcome(key string, err error, latency time.Duration) {
	outcome := "completed"
	var cerr *corro.Error
	if errors.As(err, &cerr) {
		outcome = cerr.Kind.String()
		switch cerr.Kind {
		case corro.KindTimeout:
			s.metrics.ObserveTimeout()
		case corro.KindUnavailable:
			s.metrics.ObserveUnavailable()
		}
	}
	s.metrics.SetCorrelationTableLen(s.proc.PendingCount())
	_ = s.audit.Record(context.Background(), persistence.AuditRecord{
		Key: key, Outcome: outcome, Latency: latency, At: time.Now(),
	})
}

// handleShutdown triggers the processor's coordinated drain: it closes the
// input queue, waits for Done(), and only then lets the caller proceed —
// the same "service-requests-done" phase ordering the demo's main also
// performs on SIGINT/SIGTERM.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.proc.Shutdown(ctx); err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShutdownRequested reports the channel that closes once /shutdown has been
// called, so main can also stop the HTTP listener.
func (s *Server) ShutdownRequested() <-chan struct{} { return s.shutdownCh }
