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
	"fmt"
	"time"
)

// Into splices upstream into sink, returning a channel that emits the
// resolved S of each A in upstream order. Admission runs ahead of
// resolution: a fresh slot is created and offered to sink for every a as
// soon as it arrives, and up to parallelism slots may be outstanding awaits
// at once, but results are always delivered downstream in upstream order.
// An element whose slot fails (Timeout or any other error) emits nothing,
// so the output may hold fewer values than upstream.
//
// timeout bounds each slot's own deadline the same way Processor.Submit's
// does: if the spliced sink never resolves an admitted element (dropped by
// resume supervision, or simply never produced), the slot's timer fails it
// with Timeout instead of leaving it pending forever — which would
// otherwise permanently strand one of the parallelism resolver slots.
//
// The returned channel closes once upstream closes and every outstanding
// slot has resolved, or once ctx is done, whichever comes first.
func Into[A, S any](ctx context.Context, upstream <-chan A, sink Sink[A, S], timeout time.Duration, parallelism int) <-chan S {
	if parallelism <= 0 {
		parallelism = 1
	}
	out := make(chan S)
	sem := make(chan struct{}, parallelism)
	aux := make(chan *Slot[S], parallelism)

	go func() {
		defer close(aux)
		for {
			var a A
			select {
			case <-ctx.Done():
				return
			case next, ok := <-upstream:
				if !ok {
					return
				}
				a = next
			}
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			slot := NewSlot[S]("", fmt.Sprint(a), timeout)
			sink.Offer(a, slot)
			select {
			case aux <- slot:
			case <-ctx.Done():
				<-sem
				return
			}
		}
	}()

	go func() {
		defer close(out)
		for slot := range aux {
			val, err := slot.Await(ctx)
			<-sem
			if err != nil {
				continue
			}
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// IntoRemote is the cross-node variant of Into: each admitted A is paired
// with a Respondee address (allocated via factory) instead of a local
// slot, and offered to remoteSink for routing to the remote pipeline.
// responseTimeout bounds how long the factory's respondee waits for a
// Response before failing with Timeout.
func IntoRemote[A, S any](ctx context.Context, upstream <-chan A, remoteSink RemoteSink[A], factory RespondeeFactory[S], responseTimeout time.Duration, parallelism int) <-chan S {
	if parallelism <= 0 {
		parallelism = 1
	}
	out := make(chan S)
	sem := make(chan struct{}, parallelism)
	aux := make(chan *Respondee[S], parallelism)

	go func() {
		defer close(aux)
		for a := range upstream {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			resp, err := factory.Create(ctx, responseTimeout, "")
			if err != nil {
				<-sem
				continue
			}
			remoteSink.OfferRemote(a, resp.Address())
			select {
			case aux <- resp:
			case <-ctx.Done():
				<-sem
				resp.Stop()
				return
			}
		}
	}()

	go func() {
		defer close(out)
		for resp := range aux {
			val, err := resp.Await(ctx)
			<-sem
			if err != nil {
				continue
			}
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
