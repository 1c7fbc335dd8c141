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

package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveSubmitted()
	m.ObserveSubmitted()
	m.ObserveCompleted()
	m.ObserveTimeout()
	m.ObserveUnavailable()
	m.ObserveDropped()
	m.SetCorrelationTableLen(3)

	if got := testutil.ToFloat64(m.Submitted); got != 2 {
		t.Errorf("Submitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Completed); got != 1 {
		t.Errorf("Completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Timeout); got != 1 {
		t.Errorf("Timeout = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Unavailable); got != 1 {
		t.Errorf("Unavailable = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Dropped); got != 1 {
		t.Errorf("Dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CorrelationTableLen); got != 3 {
		t.Errorf("CorrelationTableLen = %v, want 3", got)
	}
}

func TestNewMetrics_RegistersAgainstGivenRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 6 {
		t.Errorf("got %d registered metric families, want 6", len(families))
	}
}
