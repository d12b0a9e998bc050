/*
 * Copyright 2024 The ScopeID Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package id

import "context"

const (
	DefaultBatchSize        int64 = 100
	DefaultMaxWriteAttempts       = 25
)

// Generator issues unique ids which are strictly increasing per scope within one process.
type Generator interface {
	// NextID returns the next id of the scope, replenishing the local batch from the store when it is exhausted.
	NextID(ctx context.Context, scope string) (int64, error)
	// NextIDs returns count ids of the scope in increasing order.
	NextIDs(ctx context.Context, scope string, count int) ([]int64, error)
	// Scopes returns the state of every scope touched by this process.
	Scopes() []ScopeSnapshot
}

// OptimisticStore is the shared storage of the id seeds.
//
// The seed of a scope is the string-encoded next unreserved id. The store remembers the version of the seed observed
// by the latest GetData of a scope, and TryOptimisticWrite only succeeds if the seed is still of that version.
type OptimisticStore interface {
	GetData(ctx context.Context, scope string) (string, error)
	// TryOptimisticWrite returns false without error if the seed has been modified since it was observed.
	TryOptimisticWrite(ctx context.Context, scope string, value string) (bool, error)
}

type Config struct {
	// BatchSize is the number of ids reserved from the store by one replenishment.
	BatchSize int64
	// MaxWriteAttempts bounds the conditional writes of one replenishment.
	MaxWriteAttempts int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:        DefaultBatchSize,
		MaxWriteAttempts: DefaultMaxWriteAttempts,
	}
}

func (c Config) validate() error {
	if c.MaxWriteAttempts < 1 {
		return ErrInvalidConfig.WithCausef("maxWriteAttempts must be a positive number, maxWriteAttempts:%d", c.MaxWriteAttempts)
	}
	if c.BatchSize < 1 {
		return ErrInvalidConfig.WithCausef("batchSize must be a positive number, batchSize:%d", c.BatchSize)
	}
	return nil
}

type ScopeSnapshot struct {
	Name       string `json:"name"`
	LastID     int64  `json:"lastID"`
	UpperLimit int64  `json:"upperLimit"`
}
