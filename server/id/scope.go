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
	"sort"
	"sync"
)

// scopeState caches the batch of ids this process has reserved for one scope.
type scopeState struct {
	// lock must be held to access the fields below, including during the whole replenishment.
	lock       sync.Mutex
	lastID     int64
	upperLimit int64
	// reserved is set after the first successful replenishment.
	reserved bool
}

func (s *scopeState) isExhausted() bool {
	return s.lastID == s.upperLimit
}

// scopeRegistry holds the state of every scope for the lifetime of the process.
type scopeRegistry struct {
	// lock only protects the states map, and is never held while a scope state is locked.
	lock   sync.RWMutex
	states map[string]*scopeState
}

func newScopeRegistry() *scopeRegistry {
	return &scopeRegistry{
		lock:   sync.RWMutex{},
		states: make(map[string]*scopeState),
	}
}

func (r *scopeRegistry) getOrCreate(scope string) *scopeState {
	r.lock.RLock()
	state, ok := r.states[scope]
	r.lock.RUnlock()
	if ok {
		return state
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	// Another goroutine may have created it before the write lock is acquired.
	if state, ok := r.states[scope]; ok {
		return state
	}
	state = &scopeState{}
	r.states[scope] = state
	return state
}

// snapshot reads every scope state under its own lock, after the registry lock is released.
func (r *scopeRegistry) snapshot() []ScopeSnapshot {
	r.lock.RLock()
	names := make([]string, 0, len(r.states))
	states := make(map[string]*scopeState, len(r.states))
	for name, state := range r.states {
		names = append(names, name)
		states[name] = state
	}
	r.lock.RUnlock()

	sort.Strings(names)
	snapshots := make([]ScopeSnapshot, 0, len(names))
	for _, name := range names {
		state := states[name]
		state.lock.Lock()
		snapshots = append(snapshots, ScopeSnapshot{
			Name:       name,
			LastID:     state.lastID,
			UpperLimit: state.upperLimit,
		})
		state.lock.Unlock()
	}
	return snapshots
}
