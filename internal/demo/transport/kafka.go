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
	"encoding/json"
	"log"
	"time"

	"corro"
)

// Producer is a minimal abstraction over a Kafka client, deliberately not
// bound to a specific library so the embedder supplies a real one (the
// teacher takes the same stance in persistence.KafkaProducer: interface
// first, concrete client supplied by whoever deploys the service).
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// LoggingProducer is a Producer that logs instead of publishing, for
// dependency-free demo and test use.
type LoggingProducer struct{}

func (LoggingProducer) Produce(ctx context.Context, topic string, key, value []byte) error {
	log.Printf("transport/kafka: produce topic=%s key=%s value=%s", topic, key, value)
	return nil
}

// kafkaEnvelope is the JSON payload produced to Kafka: the caller's request
// plus the respondee address it expects a response at, following the
// teacher's CommitMessage convention of a small, explicit wire struct.
type kafkaEnvelope[A any] struct {
	Request A      `json:"request"`
	Address string `json:"address"`
}

// KafkaSink implements corro.RemoteSink by publishing each admitted element
// and its respondee address to a topic. It does not itself deliver
// responses — the remote pipeline's consumer is expected to resolve the
// respondee via whatever factory backend (Local, Redis) minted the address.
type KafkaSink[A any] struct {
	producer Producer
	topic    string
}

// NewKafkaSink constructs a RemoteSink publishing to topic via producer.
func NewKafkaSink[A any](producer Producer, topic string) *KafkaSink[A] {
	return &KafkaSink[A]{producer: producer, topic: topic}
}

// OfferRemote implements corro.RemoteSink[A]. It waits for Produce to
// return, for up to 5 seconds, so it can block for that long; a marshal or
// Produce error reports OfferDropped.
func (k *KafkaSink[A]) OfferRemote(a A, address string) corro.OfferResult {
	b, err := json.Marshal(kafkaEnvelope[A]{Request: a, Address: address})
	if err != nil {
		return corro.OfferDropped
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := k.producer.Produce(ctx, k.topic, []byte(address), b); err != nil {
		return corro.OfferDropped
	}
	return corro.OfferEnqueued
}
