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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"corro"
)

// RedisPubSub subscribes the constructing node to a fresh channel per
// respondee, the channel name itself serving as the wire address, mirroring
// the teacher's convention of deriving Redis keys from a stable prefix plus
// an idempotency token (see persistence.RedisCommitMarkerKey).
type RedisPubSub[S any] struct {
	client *redis.Client
	prefix string
}

// NewRedisPubSub constructs a backend against an already-configured
// *redis.Client. prefix namespaces channel names, e.g. "corro-demo".
func NewRedisPubSub[S any](client *redis.Client, prefix string) *RedisPubSub[S] {
	return &RedisPubSub[S]{client: client, prefix: prefix}
}

// Create implements corro.RespondeeFactory. It subscribes to a fresh
// channel before returning, so a publish racing the return of Create can
// never be missed.
func (r *RedisPubSub[S]) Create(ctx context.Context, timeout time.Duration, tag string) (*corro.Respondee[S], error) {
	address, err := r.nextChannel()
	if err != nil {
		return nil, err
	}
	sub := r.client.Subscribe(ctx, address)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("transport: subscribe %s: %w", address, err)
	}

	slot := corro.NewSlot[S]("redis-respondee", tag, timeout)
	resp := corro.NewRespondee(address, slot, func() { _ = sub.Close() })

	go func() {
		ch := sub.Channel()
		for msg := range ch {
			var value S
			if err := json.Unmarshal([]byte(msg.Payload), &value); err != nil {
				continue
			}
			if resp.Response(value) {
				return
			}
		}
	}()
	return resp, nil
}

// Publish delivers a response to a respondee's address from the side that
// owns the remote pipeline. s is JSON-encoded and PUBLISHed.
func (r *RedisPubSub[S]) Publish(ctx context.Context, address string, value S) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("transport: marshal response: %w", err)
	}
	return r.client.Publish(ctx, address, b).Err()
}

func (r *RedisPubSub[S]) nextChannel() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("transport: generate channel: %w", err)
	}
	return fmt.Sprintf("%s:respondee:%s", r.prefix, hex.EncodeToString(buf[:])), nil
}
