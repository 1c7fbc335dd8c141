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

package core

import (
	"math/rand"
	"strings"
	"time"

	"corro"
	"corro/internal/demo/telemetry"
)

// Job is the demo's request element: a short text payload to normalize,
// identified by a caller-supplied ID so the correlated variant can match
// an out-of-order result back to its submitter.
type Job struct {
	ID   string
	Text string
}

// Result is the demo's response element.
type Result struct {
	ID     string
	Output string
}

// Config collects the flag-derived knobs for the demo pipeline.
type Config struct {
	BufferSize      int
	MaxInFlight     int
	Timeout         time.Duration
	Name            string
	Correlated      bool
	SweepInterval   time.Duration
	Shards          int
	SimulatedJitter time.Duration
	FailureRate     float64
}

// BuildProcessor constructs the demo's corro.Processor. When cfg.Correlated
// is set, Process runs on a worker pool that may reorder results, and the
// processor is configured with a Correlator keyed by Job.ID / Result.ID;
// otherwise the processor runs order-preserving.
func BuildProcessor(cfg Config, metrics *telemetry.Metrics, logger corro.Logger) (*corro.Processor[Job, Result], error) {
	process := processFunc(cfg, metrics)

	pc := corro.Config[Job, Result]{
		Process:     process,
		BufferSize:  cfg.BufferSize,
		MaxInFlight: cfg.MaxInFlight,
		Name:        cfg.Name,
		Timeout:     cfg.Timeout,
		Logger:      logger,
	}
	if cfg.Correlated {
		pc.Correlation = &corro.CorrelationConfig[Job, Result]{
			KeyOfRequest:  func(j Job) string { return j.ID },
			KeyOfResponse: func(r Result) string { return r.ID },
			SweepInterval: cfg.SweepInterval,
			Shards:        cfg.Shards,
		}
	}
	return corro.NewProcessor(pc)
}

// processFunc is the demo's opaque transformation: it upper-cases the job's
// text after a small simulated delay, occasionally panicking on malformed
// input to exercise the pipeline's resume supervision.
func processFunc(cfg Config, metrics *telemetry.Metrics) func(Job) Result {
	return func(j Job) Result {
		if strings.TrimSpace(j.Text) == "" {
			metrics.ObserveDropped()
			panic("corro-demo: empty job text")
		}
		if cfg.SimulatedJitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(cfg.SimulatedJitter))))
		}
		if cfg.FailureRate > 0 && rand.Float64() < cfg.FailureRate {
			metrics.ObserveDropped()
			panic("corro-demo: simulated processing failure")
		}
		metrics.ObserveCompleted()
		return Result{ID: j.ID, Output: strings.ToUpper(j.Text)}
	}
}
