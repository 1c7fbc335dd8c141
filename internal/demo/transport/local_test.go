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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"corro"
)

func TestLocal_CreateThenDeliverRoundTrips(t *testing.T) {
	l := NewLocal[int]("test")
	resp, err := l.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !l.Deliver(resp.Address(), 9) {
		t.Fatalf("Deliver() = false, want true")
	}
	val, err := resp.Await(context.Background())
	if err != nil || val != 9 {
		t.Fatalf("Await() = (%d, %v), want (9, nil)", val, err)
	}
}

func TestLocal_DeliverToUnknownAddressFails(t *testing.T) {
	l := NewLocal[int]("test")
	if l.Deliver("nonexistent", 1) {
		t.Fatalf("Deliver() = true, want false for an unregistered address")
	}
}

func TestLocal_AddressesAreUnique(t *testing.T) {
	l := NewLocal[int]("test")
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		resp, err := l.Create(context.Background(), time.Second, "")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[resp.Address()] {
			t.Fatalf("duplicate address %q", resp.Address())
		}
		seen[resp.Address()] = true
	}
}

func TestLocal_RespondeeTimesOutWithoutDelivery(t *testing.T) {
	l := NewLocal[int]("test")
	resp, err := l.Create(context.Background(), 10*time.Millisecond, "slow")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err = resp.Await(context.Background())
	var cerr *corro.Error
	if !errors.As(err, &cerr) || cerr.Kind != corro.KindTimeout {
		t.Fatalf("Await() error = %v, want Timeout", err)
	}
}

func TestLocal_MailboxEntryReleasedAfterResolution(t *testing.T) {
	l := NewLocal[int]("test")
	resp, err := l.Create(context.Background(), time.Second, "tag")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	address := resp.Address()
	resp.Response(1)

	deadline := time.After(time.Second)
	for {
		if _, ok := l.mailbox.Load(address); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("mailbox entry for %q was never released", address)
		case <-time.After(time.Millisecond):
		}
	}
}
