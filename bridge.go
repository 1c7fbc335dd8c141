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

package corro

import (
	"context"
	"sync/atomic"
	"time"
)

// Respondee is the remote analogue of Slot: an addressable mailbox whose
// identity (Address) can be serialized into an envelope and routed to a
// pipeline running on another node. The node that owns the pipeline
// resolves the asker by calling Response on whatever RespondeeFactory
// backend constructed this Respondee, keyed by Address.
//
// Respondee's state machine is the same Fresh/Stopped shape as Slot and is
// arbitrated locally: the wrapped Slot's CAS decides between Response and
// the deadline, and an atomic stopped flag makes Stop take effect once.
// Concrete backends (see internal/demo/transport) decide how Response and
// Stop are delivered across the wire.
type Respondee[S any] struct {
	address string
	slot    *Slot[S]
	stopped atomic.Bool
	onStop  func()
}

// NewRespondee wraps a local Slot with a stable wire address and an
// optional onStop hook the owning backend uses to release transport
// resources (e.g. a subscription) when the respondee reaches a terminal
// state by any means.
func NewRespondee[S any](address string, slot *Slot[S], onStop func()) *Respondee[S] {
	r := &Respondee[S]{address: address, slot: slot, onStop: onStop}
	go func() {
		<-slot.Done()
		r.Stop()
	}()
	return r
}

// Address is the opaque wire identity a caller embeds into the envelope it
// routes to the remote pipeline.
func (r *Respondee[S]) Address() string { return r.address }

// Response delivers the remote pipeline's answer. It is a no-op once the
// respondee has stopped.
func (r *Respondee[S]) Response(s S) bool {
	if r.stopped.Load() {
		return false
	}
	return r.slot.Complete(s)
}

// Await blocks until Response, the respondee's own deadline, or ctx
// cancellation, whichever comes first.
func (r *Respondee[S]) Await(ctx context.Context) (S, error) {
	return r.slot.Await(ctx)
}

// Stop releases the respondee. It is idempotent and safe to call from the
// deadline timer, from Response's resolution, or explicitly by the owner.
func (r *Respondee[S]) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	if r.onStop != nil {
		r.onStop()
	}
}

// RespondeeFactory constructs addressable respondees for the remote
// bridge. Concrete backends (local in-process registry, Redis pub/sub,
// …) live under internal/demo/transport and satisfy this interface.
type RespondeeFactory[S any] interface {
	// Create allocates a fresh Respondee with the given deadline. tag is
	// opaque diagnostic text carried into any Timeout failure.
	Create(ctx context.Context, timeout time.Duration, tag string) (*Respondee[S], error)
}

// RemoteSink is the write-end for splicing an upstream sequence into a
// pipeline that may live on another node: instead of a local Slot, each
// element is paired with a Respondee address that the remote pipeline is
// expected to resolve by eventually calling Response on some backend's
// mailbox for that address.
type RemoteSink[A any] interface {
	// OfferRemote attempts to admit (a, address) without blocking, using
	// the same drop-newest backpressure policy as Sink.Offer.
	OfferRemote(a A, address string) OfferResult
}
