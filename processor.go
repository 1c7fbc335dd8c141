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
	"sync"
	"sync/atomic"
	"time"
)

// Config enumerates a Processor's construction-time configuration. All
// fields except MaxInFlight, Correlation and Logger are required.
type Config[R, S any] struct {
	// Process is the opaque transformation from request to response. It
	// must emit exactly one S per admitted R in input order, unless
	// Correlation is set. A panic inside Process is recovered, logged,
	// and treated as a dropped element (resume supervision) — it does
	// not terminate the Processor.
	Process func(R) S
	// BufferSize is the bounded capacity of the input queue. Must be > 0.
	BufferSize int
	// MaxInFlight bounds the number of concurrent in-flight Process
	// calls, and doubles as the size of the internal ordering buffer for
	// the uncorrelated (positional) variant. Defaults to BufferSize.
	MaxInFlight int
	// Name is a diagnostic identifier included in failures and logs.
	Name string
	// Timeout is the per-request deadline applied to each slot at
	// admission. Must be > 0.
	Timeout time.Duration
	// Correlation enables the correlated variant. Leave nil for an
	// order-preserving, 1:1 Process.
	Correlation *CorrelationConfig[R, S]
	// Logger receives element-level drop and supervision diagnostics.
	// Defaults to a discard logger.
	Logger Logger
}

func (c *Config[R, S]) validate() error {
	if c.Process == nil {
		return invalidArgument("Process must not be nil")
	}
	if c.BufferSize <= 0 {
		return invalidArgument("BufferSize must be positive, got %d", c.BufferSize)
	}
	if c.Name == "" {
		return invalidArgument("Name must not be empty")
	}
	if c.Timeout <= 0 {
		return invalidArgument("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxInFlight < 0 {
		return invalidArgument("MaxInFlight must not be negative, got %d", c.MaxInFlight)
	}
	if c.Correlation != nil {
		if err := c.Correlation.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Processor is a long-running in-process pipeline instance: it owns a
// bounded input queue and a materialized stream that runs Process
// end-to-end, pairing each admitted request with its slot and completing
// the slot from the emitted output.
//
// Its lifecycle mirrors the teacher's SService/Worker pair: a bounded
// channel for ingress, a background goroutine, and a Start-implicit /
// Stop-explicit shutdown that drains before signaling completion.
type Processor[R, S any] struct {
	cfg     Config[R, S]
	logger  Logger
	queue   chan envelope[R, S]
	admitMu sync.RWMutex
	closed  atomic.Bool

	correlator *correlator[R, S]

	shutdownOnce sync.Once
	done         chan struct{}
	stopSweep    chan struct{}
}

// NewProcessor constructs and starts a Processor. Construction fails
// synchronously with InvalidArgument when the configuration is invalid.
func NewProcessor[R, S any](cfg Config[R, S]) (*Processor[R, S], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = cfg.BufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = DefaultLogger()
	}

	p := &Processor[R, S]{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan envelope[R, S], cfg.BufferSize),
		done:   make(chan struct{}),
	}
	if cfg.Correlation != nil {
		p.correlator = newCorrelator(*cfg.Correlation)
		p.stopSweep = make(chan struct{})
		go p.correlator.runSweeper(p.stopSweep)
	}

	if p.correlator != nil {
		go p.runCorrelated()
	} else {
		go p.runOrdered()
	}
	return p, nil
}

// Submit creates an envelope for req and offers it to the bounded queue.
// It returns the eventual response, or Unavailable if the queue was full,
// Timeout if the deadline elapsed first, or Shutdown if the Processor
// drained before resolving it.
func (p *Processor[R, S]) Submit(ctx context.Context, req R) (S, error) {
	slot := NewSlot[S](p.cfg.Name, fmt.Sprint(req), p.cfg.Timeout)
	switch p.offer(req, slot) {
	case OfferEnqueued:
		return slot.Await(ctx)
	case OfferDropped:
		var zero S
		return zero, unavailable(p.cfg.Name)
	default:
		var zero S
		return zero, unexpectedOfferResult(p.cfg.Name, nil)
	}
}

// Sink returns the write-end for use by SubmitterAdapter's splice path.
// Envelopes offered here skip the per-call Submit and flow directly into
// the same bounded queue.
func (p *Processor[R, S]) Sink() Sink[R, S] { return (*processorSink[R, S])(p) }

// processorSink adapts *Processor to Sink without exposing the queue
// itself, so admission always passes through the closed/admitMu gate.
type processorSink[R, S any] Processor[R, S]

func (s *processorSink[R, S]) Offer(req R, slot *Slot[S]) OfferResult {
	return (*Processor[R, S])(s).offer(req, slot)
}

// offer is the single admission path shared by Submit and the Sink
// adapter. It is guarded by admitMu so that Shutdown can close the queue
// exactly once no concurrent offer can still be mid-send: an offer holds
// the read lock across its closed-check and its non-blocking send, and
// Shutdown takes the write lock before flipping closed and closing the
// queue — the two can never interleave.
func (p *Processor[R, S]) offer(req R, slot *Slot[S]) OfferResult {
	p.admitMu.RLock()
	defer p.admitMu.RUnlock()
	if p.closed.Load() {
		return OfferDropped
	}
	select {
	case p.queue <- envelope[R, S]{req: req, slot: slot}:
		return OfferEnqueued
	default:
		return OfferDropped
	}
}

// Done reports the channel that closes exactly once, after the stream has
// fully drained following Shutdown.
func (p *Processor[R, S]) Done() <-chan struct{} { return p.done }

// PendingCount reports the number of entries currently tracked by the
// correlation table, or 0 when the processor runs order-preserving.
// Intended for diagnostics and metrics exporters.
func (p *Processor[R, S]) PendingCount() int {
	if p.correlator == nil {
		return 0
	}
	return p.correlator.len()
}

// Shutdown closes the input queue to new admissions and waits for the
// stream to drain, or for ctx to be done, whichever comes first. It is
// idempotent: a second call observes the same Done() channel.
func (p *Processor[R, S]) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.admitMu.Lock()
		p.closed.Store(true)
		close(p.queue)
		p.admitMu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slotTicket carries one in-flight Process call's result back to the
// resolver goroutine in FIFO order — the "zipped auxiliary buffer" of
// §4.2, bounded to MaxInFlight entries.
type slotTicket[S any] struct {
	result chan S
	slot   *Slot[S]
}

// runOrdered backs the uncorrelated (positional) variant: Process calls run
// with bounded concurrency, but results are matched to slots strictly in
// admission order via the aux ticket buffer.
func (p *Processor[R, S]) runOrdered() {
	defer close(p.done)

	sem := make(chan struct{}, p.cfg.MaxInFlight)
	aux := make(chan *slotTicket[S], p.cfg.MaxInFlight)
	resolverDone := make(chan struct{})

	go func() {
		defer close(resolverDone)
		for t := range aux {
			out, ok := <-t.result
			if ok {
				t.slot.Complete(out)
			}
			// !ok: Process panicked for this element (resume
			// supervision dropped it); its own deadline timer will
			// eventually fail it with Timeout.
		}
	}()

	var dispatchWG sync.WaitGroup
	for {
		// Take an in-flight slot before the next envelope, so an envelope
		// waiting for capacity stays in the queue and counts against
		// BufferSize.
		sem <- struct{}{}
		env, ok := <-p.queue
		if !ok {
			break
		}
		t := &slotTicket[S]{result: make(chan S, 1), slot: env.slot}
		aux <- t
		dispatchWG.Add(1)
		go func(env envelope[R, S], t *slotTicket[S]) {
			defer dispatchWG.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("corro: process panicked, dropping element", "name", p.cfg.Name, "panic", r)
					close(t.result)
				}
			}()
			t.result <- p.cfg.Process(env.req)
		}(env, t)
	}
	dispatchWG.Wait()
	close(aux)
	<-resolverDone
}

// runCorrelated backs the correlated variant: the correlation table itself
// tracks pending slots, so results resolve out of order via resolve(), and
// Shutdown's drain force-fails whatever the sweeper hasn't yet reclaimed.
func (p *Processor[R, S]) runCorrelated() {
	defer p.finishCorrelatedDrain()

	sem := make(chan struct{}, p.cfg.MaxInFlight)
	var dispatchWG sync.WaitGroup
	for env := range p.queue {
		p.correlator.admit(env.req, env.slot)
		sem <- struct{}{}
		dispatchWG.Add(1)
		go func(env envelope[R, S]) {
			defer dispatchWG.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("corro: process panicked, dropping element", "name", p.cfg.Name, "panic", r)
				}
			}()
			out := p.cfg.Process(env.req)
			p.correlator.resolve(out)
		}(env)
	}
	dispatchWG.Wait()
}

// finishCorrelatedDrain stops the sweeper and fails every entry still
// tracked in the correlation table with Shutdown, then closes Done. This
// is the correlated variant's strict reading of "existing admissions drain
// to terminal states before completion fires" — every tracked entry,
// including ones Process silently dropped, is forced terminal here rather
// than left to its own timer.
func (p *Processor[R, S]) finishCorrelatedDrain() {
	close(p.stopSweep)
	name := p.cfg.Name
	p.correlator.failAll(func() error { return shutdown(name, "") })
	close(p.done)
}
