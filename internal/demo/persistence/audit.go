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

// Package persistence provides an optional, explicitly non-authoritative
// audit sink: it records each request's terminal outcome (key, outcome,
// latency) for observability after the fact. Losing it does not affect correctness of
// the in-memory correlation table, unlike a durable log of in-flight
// requests would (which this repository deliberately does not provide —
// see the Non-goals around in-flight persistence).
package persistence

import (
	"context"
	"database/sql"
	"time"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS corro_audit_log (
//   key        TEXT NOT NULL,
//   outcome    TEXT NOT NULL,
//   latency_ms BIGINT NOT NULL,
//   at         TIMESTAMPTZ NOT NULL
// );
// CREATE INDEX IF NOT EXISTS idx_corro_audit_log_at ON corro_audit_log(at);

// AuditRecord captures a single request's terminal outcome.
type AuditRecord struct {
	Key     string
	Outcome string // "completed", "timeout", "unavailable", "shutdown", "not_correlated"
	Latency time.Duration
	At      time.Time
}

// AuditSink accepts terminal outcomes for durable, append-only logging.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// NoopSink discards every record. It is the default, which BuildSink
// returns for the "" and "none" adapters, the same way the teacher's demo defaults to a mock
// persister rather than requiring infrastructure to run.
type NoopSink struct{}

func (NoopSink) Record(context.Context, AuditRecord) error { return nil }

// PostgresSink appends audit records to corro_audit_log. Unlike the
// teacher's idempotent commit pattern (applied_commits + fencing), this
// sink has no idempotency requirement: duplicate audit rows for the same
// logical request are harmless, since this table is observational only.
type PostgresSink struct {
	db             *sql.DB
	defaultTimeout time.Duration
}

// NewPostgresSink wraps an already-configured *sql.DB. Driver selection
// (and its import) is left to the embedder, the same way the teacher never
// imports a concrete postgres driver package from its persistence layer.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db, defaultTimeout: 10 * time.Second}
}

// Record inserts a single audit row.
func (p *PostgresSink) Record(ctx context.Context, rec AuditRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && p.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.defaultTimeout)
		defer cancel()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO corro_audit_log(key, outcome, latency_ms, at) VALUES ($1, $2, $3, $4)`,
		rec.Key, rec.Outcome, rec.Latency.Milliseconds(), rec.At)
	return err
}
