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
	"sync"
)

// seedBackend plays the shared storage, every fakeStore on it plays one process.
type seedBackend struct {
	lock     sync.Mutex
	seeds    map[string]string
	versions map[string]int64
}

func newSeedBackend() *seedBackend {
	return &seedBackend{
		seeds:    make(map[string]string),
		versions: make(map[string]int64),
	}
}

func (b *seedBackend) set(scope, value string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.seeds[scope] = value
	b.versions[scope]++
}

func (b *seedBackend) get(scope string) string {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.seeds[scope]
}

type fakeStore struct {
	backend *seedBackend

	lock       sync.Mutex
	observed   map[string]int64
	getCalls   map[string]int
	writeCalls map[string]int
	written    map[string][]string

	// alwaysConflict makes every conditional write fail.
	alwaysConflict bool
	// beforeWrite is called before the conditional write, and is able to simulate a concurrent writer.
	beforeWrite func(scope string)
	// beforeGet is called before the read without holding any lock.
	beforeGet func(scope string)
	getErr    error
}

func newFakeStore(backend *seedBackend) *fakeStore {
	return &fakeStore{
		backend:    backend,
		observed:   make(map[string]int64),
		getCalls:   make(map[string]int),
		writeCalls: make(map[string]int),
		written:    make(map[string][]string),
	}
}

func (s *fakeStore) GetData(_ context.Context, scope string) (string, error) {
	if s.beforeGet != nil {
		s.beforeGet(scope)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.getCalls[scope]++
	if s.getErr != nil {
		return "", s.getErr
	}

	b := s.backend
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.seeds[scope]; !ok {
		b.seeds[scope] = "0"
		b.versions[scope]++
	}
	s.observed[scope] = b.versions[scope]
	return b.seeds[scope], nil
}

func (s *fakeStore) TryOptimisticWrite(_ context.Context, scope string, value string) (bool, error) {
	if s.beforeWrite != nil {
		s.beforeWrite(scope)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.writeCalls[scope]++
	if s.alwaysConflict {
		return false, nil
	}

	b := s.backend
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.versions[scope] != s.observed[scope] {
		return false, nil
	}
	b.seeds[scope] = value
	b.versions[scope]++
	s.written[scope] = append(s.written[scope], value)
	return true, nil
}

func (s *fakeStore) counts(scope string) (int, int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.getCalls[scope], s.writeCalls[scope]
}
