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

// Package transport provides pluggable RespondeeFactory backends for
// corro's remote bridge: an in-process registry (Local, the default and
// the one used by tests), a Redis pub/sub backend, and a Kafka-shaped
// producer interface for the publish side of a remote submission.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"corro"
)

// Local is a channel-backed mailbox registry: addresses are opaque tokens
// keyed into a sync.Map, the same bookkeeping style the teacher's Store
// uses for in-flight VSA instances. No network is involved; this is the
// default backend and the one exercised by the package's own tests.
type Local[S any] struct {
	name     string
	mailbox  sync.Map // address (string) -> *corro.Respondee[S]
	sequence atomic.Int64
}

// NewLocal constructs a Local registry. name is embedded in generated
// addresses purely for readability in logs.
func NewLocal[S any](name string) *Local[S] {
	return &Local[S]{name: name}
}

// Create implements corro.RespondeeFactory.
func (l *Local[S]) Create(ctx context.Context, timeout time.Duration, tag string) (*corro.Respondee[S], error) {
	address, err := l.nextAddress()
	if err != nil {
		return nil, err
	}
	slot := corro.NewSlot[S](l.name, tag, timeout)
	resp := corro.NewRespondee(address, slot, func() { l.mailbox.Delete(address) })
	l.mailbox.Store(address, resp)
	return resp, nil
}

// Deliver resolves the respondee registered at address, if any. It is the
// local stand-in for "the remote pipeline sends Response(s) to the
// respondee's address" — a production deployment would instead receive
// this over the wire and look up the same way.
func (l *Local[S]) Deliver(address string, value S) bool {
	v, ok := l.mailbox.Load(address)
	if !ok {
		return false
	}
	return v.(*corro.Respondee[S]).Response(value)
}

func (l *Local[S]) nextAddress() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("transport: generate address: %w", err)
	}
	seq := l.sequence.Add(1)
	return fmt.Sprintf("local:%s:%d:%s", l.name, seq, hex.EncodeToString(buf[:])), nil
}
