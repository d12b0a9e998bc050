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

package storage

import (
	"context"
	"sort"
	"sync"
)

var _ Store = &MemoryStore{}

type memorySeed struct {
	value   string
	version int64
}

// MemoryStore keeps the seeds in memory. It serves exactly one generator because the observed versions are shared
// by all its callers.
type MemoryStore struct {
	lock        sync.Mutex
	seeds       map[string]memorySeed
	initialSeed int64

	observed *observedVersions[int64]
}

func NewMemoryStore(initialSeed int64) *MemoryStore {
	return &MemoryStore{
		lock:        sync.Mutex{},
		seeds:       make(map[string]memorySeed),
		initialSeed: initialSeed,
		observed:    newObservedVersions[int64](),
	}
}

func (s *MemoryStore) GetData(_ context.Context, scope string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	seed, ok := s.seeds[scope]
	if !ok {
		seed = memorySeed{value: encodeSeed(s.initialSeed), version: 1}
		s.seeds[scope] = seed
	}
	s.observed.set(scope, seed.version)
	return seed.value, nil
}

func (s *MemoryStore) TryOptimisticWrite(_ context.Context, scope string, value string) (bool, error) {
	version, ok := s.observed.get(scope)
	if !ok {
		return false, ErrNoObservedVersion.WithCausef("scope:%s", scope)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	seed := s.seeds[scope]
	if seed.version != version {
		return false, nil
	}
	s.seeds[scope] = memorySeed{value: value, version: seed.version + 1}
	return true, nil
}

// Put overwrites the seed of the scope unconditionally.
func (s *MemoryStore) Put(scope, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	seed := s.seeds[scope]
	s.seeds[scope] = memorySeed{value: value, version: seed.version + 1}
}

func (s *MemoryStore) ListSeeds(_ context.Context) ([]Seed, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	seeds := make([]Seed, 0, len(s.seeds))
	for scope, seed := range s.seeds {
		seeds = append(seeds, Seed{Scope: scope, Value: seed.value})
	}
	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i].Scope < seeds[j].Scope
	})
	return seeds, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
