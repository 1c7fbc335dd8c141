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

package persistence

import (
	"database/sql"
	"fmt"
)

// BuildSink constructs an AuditSink for the demo based on a string
// selector, mirroring the teacher's BuildPersister adapter-by-name
// pattern.
//
// Supported adapters:
//   - "" / "none": NoopSink (default; no infrastructure required)
//   - "postgres": requires db to be non-nil, the schema already migrated
func BuildSink(adapter string, db *sql.DB) (AuditSink, error) {
	switch adapter {
	case "", "none":
		return NoopSink{}, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("persistence: postgres adapter requires a configured *sql.DB")
		}
		return NewPostgresSink(db), nil
	default:
		return nil, fmt.Errorf("persistence: unknown audit adapter: %s", adapter)
	}
}
