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

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/scopeid/scopeid/pkg/assert"
	"go.uber.org/zap"
)

var _ Generator = &GeneratorImpl{}

type GeneratorImpl struct {
	logger *zap.Logger
	store  OptimisticStore

	batchSize        int64
	maxWriteAttempts int

	registry *scopeRegistry
}

// NewGenerator creates a generator reserving ids from the store, and fails if the config is invalid.
func NewGenerator(logger *zap.Logger, store OptimisticStore, cfg Config) (*GeneratorImpl, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &GeneratorImpl{
		logger:           logger,
		store:            store,
		batchSize:        cfg.BatchSize,
		maxWriteAttempts: cfg.MaxWriteAttempts,
		registry:         newScopeRegistry(),
	}, nil
}

func (g *GeneratorImpl) NextID(ctx context.Context, scope string) (int64, error) {
	if len(scope) == 0 {
		return 0, ErrInvalidScope.WithCausef("scope name is empty")
	}

	state := g.registry.getOrCreate(scope)
	state.lock.Lock()
	defer state.lock.Unlock()

	id, err := g.nextLocked(ctx, scope, state)
	if err != nil {
		return 0, errors.WithMessagef(err, "next id, scope:%s", scope)
	}
	issuedIDCounter.WithLabelValues(scope).Inc()
	return id, nil
}

// NextIDs holds the scope lock for all the ids, so they are consecutive unless a replenishment happens in between.
// Ids issued before a failure are discarded.
func (g *GeneratorImpl) NextIDs(ctx context.Context, scope string, count int) ([]int64, error) {
	if len(scope) == 0 {
		return nil, ErrInvalidScope.WithCausef("scope name is empty")
	}
	if count < 1 {
		return nil, ErrInvalidCount.WithCausef("count must be a positive number, count:%d", count)
	}

	state := g.registry.getOrCreate(scope)
	state.lock.Lock()
	defer state.lock.Unlock()

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := g.nextLocked(ctx, scope, state)
		if err != nil {
			return nil, errors.WithMessagef(err, "next ids, scope:%s, count:%d, issued:%d", scope, count, len(ids))
		}
		ids = append(ids, id)
	}
	issuedIDCounter.WithLabelValues(scope).Add(float64(count))
	return ids, nil
}

func (g *GeneratorImpl) Scopes() []ScopeSnapshot {
	return g.registry.snapshot()
}

func (g *GeneratorImpl) nextLocked(ctx context.Context, scope string, state *scopeState) (int64, error) {
	if state.isExhausted() {
		if err := g.replenishLocked(ctx, scope, state); err != nil {
			return 0, err
		}
	}

	assert.Assertf(state.lastID < state.upperLimit, "no id is reserved after replenishment, scope:%s, lastID:%d, upperLimit:%d", scope, state.lastID, state.upperLimit)
	state.lastID++
	return state.lastID, nil
}

// replenishLocked reserves (seed, seed+batchSize] from the store for the scope.
// The state is only modified if the reservation succeeds.
func (g *GeneratorImpl) replenishLocked(ctx context.Context, scope string, state *scopeState) error {
	writesAttempted := 0
	for writesAttempted < g.maxWriteAttempts {
		data, err := g.store.GetData(ctx, scope)
		if err != nil {
			replenishCounter.WithLabelValues(scope, replenishResultStoreError).Inc()
			return errors.WithMessage(err, "get id seed")
		}

		seed, err := decodeSeed(data)
		if err != nil {
			replenishCounter.WithLabelValues(scope, replenishResultCorrupt).Inc()
			g.logger.Error("id seed is corrupt", zap.String("scope", scope), zap.String("data", data), zap.Error(err))
			return ErrCorruptSeed.WithCause(&CorruptSeedError{Scope: scope, Data: data})
		}
		// A seed behind the current batch would hand out ids issued before.
		if state.reserved && seed < state.upperLimit {
			replenishCounter.WithLabelValues(scope, replenishResultCorrupt).Inc()
			return ErrSeedRegressed.WithCausef("id seed in storage can't be less than the reserved one, scope:%s, seed:%d, reserved:%d", scope, seed, state.upperLimit)
		}
		if seed > math.MaxInt64-g.batchSize {
			replenishCounter.WithLabelValues(scope, replenishResultOverflow).Inc()
			return ErrSeedOverflow.WithCausef("scope:%s, seed:%d, batchSize:%d", scope, seed, g.batchSize)
		}

		proposedLimit := seed + g.batchSize
		ok, err := g.store.TryOptimisticWrite(ctx, scope, encodeSeed(proposedLimit))
		if err != nil {
			replenishCounter.WithLabelValues(scope, replenishResultStoreError).Inc()
			return errors.WithMessagef(err, "put id seed, old value:%d, new value:%d", seed, proposedLimit)
		}
		if ok {
			state.lastID = seed
			state.upperLimit = proposedLimit
			state.reserved = true
			replenishCounter.WithLabelValues(scope, replenishResultSuccess).Inc()

			g.logger.Info("reserve a new batch of ids", zap.String("scope", scope), zap.Int64("base", seed), zap.Int64("end", proposedLimit), zap.Int("conflicts", writesAttempted))
			return nil
		}

		writesAttempted++
		writeConflictCounter.WithLabelValues(scope).Inc()
		g.logger.Debug("id seed is modified concurrently, retry", zap.String("scope", scope), zap.Int64("seed", seed), zap.Int("attempts", writesAttempted))
	}

	replenishCounter.WithLabelValues(scope, replenishResultContention).Inc()
	g.logger.Warn("too much contention on id seed", zap.String("scope", scope), zap.Int("attempts", writesAttempted))
	return ErrWriteContention.WithCause(&ContentionError{Scope: scope, Attempts: writesAttempted})
}

func encodeSeed(value int64) string {
	return strconv.FormatInt(value, 10)
}

func decodeSeed(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
