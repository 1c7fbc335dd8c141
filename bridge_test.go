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
	"sync"
	"testing"
	"time"
)

// mailbox is a minimal in-process RespondeeFactory double, standing in for
// a wire transport (see internal/demo/transport.Local for the real thing).
type mailbox[S any] struct {
	mu      sync.Mutex
	entries map[string]*Respondee[S]
	seq     int
}

func newMailbox[S any]() *mailbox[S] {
	return &mailbox[S]{entries: make(map[string]*Respondee[S])}
}

func (m *mailbox[S]) Create(ctx context.Context, timeout time.Duration, tag string) (*Respondee[S], error) {
	m.mu.Lock()
	m.seq++
	address := fmt.Sprintf("mailbox:%d", m.seq)
	m.mu.Unlock()

	slot := NewSlot[S]("mailbox", tag, timeout)
	resp := NewRespondee(address, slot, func() {
		m.mu.Lock()
		delete(m.entries, address)
		m.mu.Unlock()
	})
	m.mu.Lock()
	m.entries[address] = resp
	m.mu.Unlock()
	return resp, nil
}

func (m *mailbox[S]) Deliver(address string, value S) bool {
	m.mu.Lock()
	resp, ok := m.entries[address]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return resp.Response(value)
}

func TestRespondee_ResponseResolvesAwait(t *testing.T) {
	m := newMailbox[int]()
	resp, err := m.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !m.Deliver(resp.Address(), 7) {
		t.Fatalf("Deliver() = false, want true")
	}
	val, err := resp.Await(context.Background())
	if err != nil || val != 7 {
		t.Fatalf("Await() = (%d, %v), want (7, nil)", val, err)
	}
}

func TestRespondee_TimeoutFiresWithoutResponse(t *testing.T) {
	m := newMailbox[int]()
	resp, err := m.Create(context.Background(), 10*time.Millisecond, "slow")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = resp.Await(context.Background())
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindTimeout {
		t.Fatalf("Await() error = %v, want Timeout", err)
	}
}

func TestRespondee_ResponseAfterStopIsNoop(t *testing.T) {
	m := newMailbox[int]()
	resp, err := m.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resp.Stop()
	if m.Deliver(resp.Address(), 1) {
		t.Fatalf("Deliver() after Stop = true, want false")
	}
}

func TestRespondee_StopReleasesMailboxEntry(t *testing.T) {
	m := newMailbox[int]()
	resp, err := m.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	address := resp.Address()

	resp.Response(1)
	deadline := time.After(time.Second)
	for {
		m.mu.Lock()
		_, ok := m.entries[address]
		m.mu.Unlock()
		if !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("mailbox entry for %q was never released after Response", address)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRespondee_OnlyFirstResponseWins(t *testing.T) {
	m := newMailbox[int]()
	resp, err := m.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !resp.Response(1) {
		t.Fatalf("first Response() = false, want true")
	}
	if resp.Response(2) {
		t.Fatalf("second Response() = true, want false")
	}
	val, _ := resp.Await(context.Background())
	if val != 1 {
		t.Errorf("Await() value = %d, want 1 (first writer wins)", val)
	}
}
