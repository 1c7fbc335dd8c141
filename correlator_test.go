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
	"errors"
	"fmt"
	"testing"
	"time"
)

func intKey(n int) string { return fmt.Sprintf("%d", n) }

func newTestCorrelator(shards int) *correlator[int, int] {
	return newCorrelator(CorrelationConfig[int, int]{
		KeyOfRequest:  intKey,
		KeyOfResponse: intKey,
		SweepInterval: time.Hour,
		Shards:        shards,
	})
}

func TestCorrelator_ResolveMatchesByKey(t *testing.T) {
	for _, shards := range []int{1, 4} {
		t.Run(fmt.Sprintf("shards=%d", shards), func(t *testing.T) {
			c := newTestCorrelator(shards)
			slot := NewSlot[int]("c", "1", time.Second)
			c.admit(1, slot)

			if !c.resolve(1) {
				t.Fatalf("resolve(1) = false, want true")
			}
			val, err := slot.Await(context.Background())
			if err != nil || val != 1 {
				t.Errorf("slot resolved to (%d, %v), want (1, nil)", val, err)
			}
		})
	}
}

func TestCorrelator_ResolveWithNoMatchIncrementsDropped(t *testing.T) {
	c := newTestCorrelator(1)
	if c.resolve(99) {
		t.Fatalf("resolve(99) = true, want false (no pending entry)")
	}
	if got := c.droppedCount(); got != 1 {
		t.Errorf("droppedCount() = %d, want 1", got)
	}
}

func TestCorrelator_CorrelatedPredicateRejection(t *testing.T) {
	c := newCorrelator(CorrelationConfig[int, int]{
		KeyOfRequest:  intKey,
		KeyOfResponse: intKey,
		Correlated:    func(resp int, req int) bool { return resp == req },
		SweepInterval: time.Hour,
	})
	slot := NewSlot[int]("c", "5", time.Second)
	c.admit(5, slot)

	// KeyOfResponse(5) == "5" but treat the resolved value as mismatched
	// by constructing a response whose key matches but whose value the
	// predicate rejects is impossible here since key IS the value; use a
	// second admission instead to exercise rejection via a stale req.
	c2 := newCorrelator(CorrelationConfig[int, int]{
		KeyOfRequest:  func(int) string { return "shared" },
		KeyOfResponse: func(int) string { return "shared" },
		Correlated:    func(resp int, req int) bool { return resp == req },
		SweepInterval: time.Hour,
	})
	slot2 := NewSlot[int]("c2", "shared", time.Second)
	c2.admit(10, slot2)
	if c2.resolve(11) {
		t.Fatalf("resolve(11) = true, want false (Correlated predicate rejects 10/11 pairing)")
	}
	_, err := slot2.Await(context.Background())
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindNotCorrelated {
		t.Fatalf("slot error = %v, want NotCorrelated", err)
	}

	if !c.resolve(5) {
		t.Fatalf("resolve(5) = false, want true")
	}
}

func TestCorrelator_DuplicateKeyLastWriteWins(t *testing.T) {
	c := newTestCorrelator(1)
	first := NewSlot[int]("c", "1", time.Second)
	second := NewSlot[int]("c", "1", time.Second)
	c.admit(1, first)
	c.admit(1, second)

	if !c.resolve(1) {
		t.Fatalf("resolve(1) = false, want true")
	}
	if first.Terminal() {
		t.Errorf("first (overwritten) slot became terminal; only the most recent admission should resolve")
	}
	val, err := second.Await(context.Background())
	if err != nil || val != 1 {
		t.Errorf("second slot resolved to (%d, %v), want (1, nil)", val, err)
	}
}

func TestCorrelator_SweepRemovesTerminalEntries(t *testing.T) {
	c := newTestCorrelator(1)
	slot := NewSlot[int]("c", "1", time.Second)
	c.admit(1, slot)
	if got := c.len(); got != 1 {
		t.Fatalf("len() = %d, want 1", got)
	}
	slot.Complete(1)
	c.sweepOnce()
	if got := c.len(); got != 0 {
		t.Errorf("len() after sweep = %d, want 0", got)
	}
}

func TestCorrelator_FailAllFailsEveryPendingEntry(t *testing.T) {
	c := newTestCorrelator(2)
	slots := make([]*Slot[int], 0, 5)
	for i := 0; i < 5; i++ {
		s := NewSlot[int]("c", intKey(i), time.Hour)
		c.admit(i, s)
		slots = append(slots, s)
	}
	c.failAll(func() error { return shutdown("c", "") })
	for i, s := range slots {
		_, err := s.Await(context.Background())
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Kind != KindShutdown {
			t.Errorf("slot %d error = %v, want Shutdown", i, err)
		}
	}
}
