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

// Package main provides the entry point for the corro demo application.
//
// This application is a concrete, runnable demonstration of the corro
// library: a request/response correlator spliced over a shared, long
// running pipeline. It wires a processor, an HTTP front door, Prometheus
// metrics, and an optional audit sink, then coordinates shutdown so that
// in-flight requests drain before the process exits.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"corro/internal/demo/api"
	icore "corro/internal/demo/core"
	"corro/internal/demo/persistence"
	"corro/internal/demo/telemetry"
)

func main() {
	bufferSize := flag.Int("buffer_size", 1024, "Bounded capacity of the processor's input queue")
	maxInFlight := flag.Int("max_in_flight", 64, "Max concurrent in-flight Process calls")
	timeout := flag.Duration("timeout", 2*time.Second, "Per-request deadline")
	correlated := flag.Bool("correlated", false, "Run the correlated (out-of-order) pipeline variant instead of the order-preserving one")
	sweepInterval := flag.Duration("sweep_interval", time.Second, "Correlation table sweep cadence (only used when -correlated)")
	shards := flag.Int("shards", 1, "Correlation table shard count (only used when -correlated)")
	jitter := flag.Duration("simulated_jitter", 20*time.Millisecond, "Upper bound on simulated per-request processing delay")
	failureRate := flag.Float64("failure_rate", 0, "Probability (0..1) that a given request panics in Process, to exercise resume supervision")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address")
	auditAdapter := flag.String("audit_adapter", "", "Audit sink adapter: \"\" (none) or \"postgres\"")
	auditDSN := flag.String("audit_dsn", "", "DSN for the postgres audit adapter")
	flag.Parse()

	icore.SetThresholdInt64("buffer_size", int64(*bufferSize))
	icore.SetThresholdInt64("max_in_flight", int64(*maxInFlight))
	icore.SetThresholdDuration("timeout", *timeout)
	icore.SetThreshold("correlated", fmt.Sprintf("%v", *correlated))
	icore.SetThresholdDuration("sweep_interval", *sweepInterval)
	icore.SetThresholdInt64("shards", int64(*shards))
	icore.SetThresholdDuration("simulated_jitter", *jitter)
	icore.SetThreshold("failure_rate", fmt.Sprintf("%.3f", *failureRate))
	icore.SetThreshold("http_addr", *httpAddr)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var db *sql.DB
	if *auditAdapter == "postgres" {
		var err error
		db, err = sql.Open("postgres", *auditDSN)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}
	auditSink, err := persistence.BuildSink(*auditAdapter, db)
	if err != nil {
		logger.Error("failed to build audit sink", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	proc, err := icore.BuildProcessor(icore.Config{
		BufferSize:      *bufferSize,
		MaxInFlight:     *maxInFlight,
		Timeout:         *timeout,
		Name:            "corro-demo",
		Correlated:      *correlated,
		SweepInterval:   *sweepInterval,
		Shards:          *shards,
		SimulatedJitter: *jitter,
		FailureRate:     *failureRate,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to build processor", "error", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(proc, metrics, auditSink)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("corro demo listening", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-apiServer.ShutdownRequested():
	}

	logger.Info("shutting down")

	// service-requests-done phase: stop admitting, drain in-flight work,
	// only then let the HTTP listener close.
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := proc.Shutdown(drainCtx); err != nil {
		logger.Error("processor drain did not complete cleanly", "error", err)
	}
	cancel()

	for _, line := range icore.ThresholdSnapshot() {
		fmt.Println(line)
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("corro demo stopped")
}
