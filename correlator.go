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
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/dgryski/go-rendezvous"

	"corro/internal/striped"
)

// CorrelationConfig enables the correlated variant of a Processor: used
// when Process may reorder, fail internally, or otherwise break 1:1
// positional pairing between admitted requests and emitted responses.
type CorrelationConfig[R, S any] struct {
	// KeyOfRequest derives the correlation key from an admitted request.
	KeyOfRequest func(R) string
	// KeyOfResponse derives the correlation key from an emitted response.
	KeyOfResponse func(S) string
	// Correlated, if set, is consulted after a key match: it
	// receives the emitted response and the originally admitted request
	// sharing its key, and returns whether the pairing is acceptable. A
	// false result fails the slot with NotCorrelated instead of
	// completing it. If nil, key presence alone is sufficient.
	Correlated func(resp S, req R) bool
	// SweepInterval is the cadence at which terminal entries are purged
	// from the correlation table. Required (> 0).
	SweepInterval time.Duration
	// Shards partitions the correlation table across independent maps,
	// selected by rendezvous hashing of the correlation key, to bound
	// lock contention under many concurrent submitters. Default 1.
	Shards int
}

func (c CorrelationConfig[R, S]) validate() error {
	if c.KeyOfRequest == nil || c.KeyOfResponse == nil {
		return invalidArgument("correlation requires both KeyOfRequest and KeyOfResponse")
	}
	if c.SweepInterval <= 0 {
		return invalidArgument("correlation.SweepInterval must be positive, got %v", c.SweepInterval)
	}
	if c.Shards < 0 {
		return invalidArgument("correlation.Shards must not be negative, got %d", c.Shards)
	}
	return nil
}

type correlatorEntry[R, S any] struct {
	req  R
	slot *Slot[S]
}

type correlatorShard[R, S any] struct {
	mu    sync.Mutex
	table map[string]correlatorEntry[R, S]
}

// correlator is the stateful bookkeeping behind CorrelationConfig: a
// map[key]*Slot[S], sharded for throughput and swept periodically to drop
// entries whose slots have already terminated. It plays the same role for
// in-flight requests that the teacher's sync.Map-backed Store plays for
// in-flight VSA counters, and its sweeper mirrors the teacher's Worker
// eviction loop: a ticker, a scan-and-delete pass, a stop channel.
type correlator[R, S any] struct {
	cfg    CorrelationConfig[R, S]
	shards []*correlatorShard[R, S]
	names  []string
	ring   *rendezvous.Rendezvous

	// dropped counts resolve() calls that found no matching entry. A
	// striped counter rather than a single atomic: under many correlation
	// shards, misses on unrelated keys arrive concurrently from every
	// shard's caller and would otherwise all fight over one cache line.
	dropped *striped.Counter
}

func newCorrelator[R, S any](cfg CorrelationConfig[R, S]) *correlator[R, S] {
	n := cfg.Shards
	if n <= 0 {
		n = 1
	}
	shards := make([]*correlatorShard[R, S], n)
	names := make([]string, n)
	for i := range shards {
		shards[i] = &correlatorShard[R, S]{table: make(map[string]correlatorEntry[R, S])}
		names[i] = strconv.Itoa(i)
	}
	c := &correlator[R, S]{cfg: cfg, shards: shards, names: names, dropped: striped.NewCounter()}
	if n > 1 {
		c.ring = rendezvous.New(names, hashKeyFNV1a)
	}
	return c
}

func hashKeyFNV1a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func (c *correlator[R, S]) shardFor(key string) *correlatorShard[R, S] {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	name := c.ring.Lookup(key)
	idx, _ := strconv.Atoi(name)
	return c.shards[idx]
}

// admit inserts key -> (req, slot). Duplicate keys are last-write-wins: the
// earlier entry is replaced in the table at once, so it is no longer
// resolved, swept or failed on Shutdown; if still pending, its slot ends
// only through its own deadline timer.
func (c *correlator[R, S]) admit(req R, slot *Slot[S]) {
	key := c.cfg.KeyOfRequest(req)
	shard := c.shardFor(key)
	shard.mu.Lock()
	shard.table[key] = correlatorEntry[R, S]{req: req, slot: slot}
	shard.mu.Unlock()
}

// resolve completes the slot paired with resp's correlation key. It
// returns false if no pending entry matched the key, or if the Correlated
// predicate rejected the pairing (in which case the slot is instead failed
// with NotCorrelated).
func (c *correlator[R, S]) resolve(resp S) bool {
	key := c.cfg.KeyOfResponse(resp)
	shard := c.shardFor(key)
	shard.mu.Lock()
	entry, ok := shard.table[key]
	shard.mu.Unlock()
	if !ok {
		c.dropped.Add(1)
		return false
	}
	if c.cfg.Correlated != nil && !c.cfg.Correlated(resp, entry.req) {
		entry.slot.Fail(&Error{
			Kind:  KindNotCorrelated,
			Cause: fmt.Errorf("request=%v response=%v", entry.req, resp),
		})
		return false
	}
	return entry.slot.Complete(resp)
}

// sweepOnce removes table entries whose slot has already terminated. Safe
// to call concurrently with admit/resolve.
func (c *correlator[R, S]) sweepOnce() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		for k, entry := range shard.table {
			if entry.slot.Terminal() {
				delete(shard.table, k)
			}
		}
		shard.mu.Unlock()
	}
}

// len reports the total number of tracked entries across all shards, for
// diagnostics/metrics.
func (c *correlator[R, S]) len() int {
	n := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		n += len(shard.table)
		shard.mu.Unlock()
	}
	return n
}

// droppedCount reports how many resolve() calls found no matching entry.
func (c *correlator[R, S]) droppedCount() int64 {
	return c.dropped.Sum()
}

// runSweeper runs sweepOnce every SweepInterval until stop is closed.
func (c *correlator[R, S]) runSweeper(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweepOnce()
		case <-stop:
			return
		}
	}
}

// failAll fails every still-pending tracked entry with the given error
// constructor, used on Shutdown drain.
func (c *correlator[R, S]) failAll(mk func() error) {
	for _, shard := range c.shards {
		shard.mu.Lock()
		for _, entry := range shard.table {
			entry.slot.Fail(mk())
		}
		shard.mu.Unlock()
	}
}
