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

// Package telemetry registers the demo's Prometheus counters and gauges
// and exposes them on /metrics via promhttp.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the demo's Prometheus collectors. A single instance is
// constructed per process and shared across the pipeline and HTTP surface.
type Metrics struct {
	Submitted           prometheus.Counter
	Completed           prometheus.Counter
	Timeout             prometheus.Counter
	Unavailable         prometheus.Counter
	Dropped             prometheus.Counter
	CorrelationTableLen prometheus.Gauge
}

// NewMetrics constructs and registers the demo's collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corro_submitted_total",
			Help: "Total requests submitted to the demo processor.",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corro_completed_total",
			Help: "Total requests that resolved with a value.",
		}),
		Timeout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corro_timeout_total",
			Help: "Total requests that resolved with a Timeout failure.",
		}),
		Unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corro_unavailable_total",
			Help: "Total requests dropped at admission due to a full input queue.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corro_dropped_total",
			Help: "Total in-flight elements dropped by resume supervision.",
		}),
		CorrelationTableLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corro_correlation_table_size",
			Help: "Current number of entries tracked in the correlation table, when correlation is enabled.",
		}),
	}
	reg.MustRegister(m.Submitted, m.Completed, m.Timeout, m.Unavailable, m.Dropped, m.CorrelationTableLen)
	return m
}

func (m *Metrics) ObserveSubmitted()   { m.Submitted.Inc() }
func (m *Metrics) ObserveCompleted()   { m.Completed.Inc() }
func (m *Metrics) ObserveTimeout()     { m.Timeout.Inc() }
func (m *Metrics) ObserveUnavailable() { m.Unavailable.Inc() }
func (m *Metrics) ObserveDropped()     { m.Dropped.Inc() }
func (m *Metrics) SetCorrelationTableLen(n int) {
	m.CorrelationTableLen.Set(float64(n))
}
