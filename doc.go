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

// Package corro adapts a request/response programming model onto a
// streaming dataflow pipeline.
//
// A caller submits a request; the request flows through a long-running
// pipeline shared by every caller; when the pipeline produces the matching
// result, the caller's pending response is completed. Submit returns
// exactly one of: a value, a Timeout, an Unavailable (backpressure), a
// NotCorrelated mismatch, a Shutdown failure, or the caller's context error
// when ctx ends first — never nothing, never twice.
//
// The package is organized around four pieces: Slot, the one-shot response
// cell; Processor, the long-running pipeline instance that owns a bounded
// input queue; the correlator (enabled through CorrelationConfig), the
// keyed bookkeeping used when a Process may
// reorder or drop elements; and Respondee/RespondeeFactory, the addressable
// analogue of Slot for cross-node delivery. Into and IntoRemote splice an
// upstream sequence into a shared Processor.
package corro
