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

// Package core wires a corro.Processor into a runnable demo: flag-derived
// configuration, the demo's own Process function, and a small threshold
// registry used only for the end-of-run summary.
package core

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

var (
	thresholdsMu sync.Mutex
	thresholds   = map[string]string{}
)

// SetThreshold records a configured knob's value for the end-of-run summary.
func SetThreshold(name, value string) {
	thresholdsMu.Lock()
	thresholds[name] = value
	thresholdsMu.Unlock()
}

// SetThresholdInt64 records an int64-valued knob.
func SetThresholdInt64(name string, value int64) {
	SetThreshold(name, strconv.FormatInt(value, 10))
}

// SetThresholdDuration records a duration-valued knob.
func SetThresholdDuration(name string, value time.Duration) {
	SetThreshold(name, value.String())
}

// ThresholdSnapshot returns a sorted copy of (name, value) pairs recorded so far.
func ThresholdSnapshot() []string {
	thresholdsMu.Lock()
	defer thresholdsMu.Unlock()
	keys := make([]string, 0, len(thresholds))
	for k := range thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%-28s %s", k, thresholds[k]))
	}
	return lines
}
