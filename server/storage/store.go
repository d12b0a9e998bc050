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
	"strconv"
	"strings"
	"sync"

	"github.com/scopeid/scopeid/server/id"
)

const (
	delimiter    = "/"
	scopesPrefix = "scopes"

	DefaultInitialSeed int64 = 0
)

// Store is an id.OptimisticStore which is also able to list the seeds it holds.
type Store interface {
	id.OptimisticStore
	// ListSeeds returns the seeds of all the scopes sorted by the scope name.
	ListSeeds(ctx context.Context) ([]Seed, error)
	Close() error
}

type Seed struct {
	Scope string `json:"scope"`
	Value string `json:"value"`
}

func encodeSeed(value int64) string {
	return strconv.FormatInt(value, 10)
}

// makeSeedKey returns <rootPath>/scopes/<scope>, and the scope is kept as it is.
func makeSeedKey(rootPath, scope string) string {
	return strings.Join([]string{rootPath, scopesPrefix, scope}, delimiter)
}

func makeSeedKeyPrefix(rootPath string) string {
	return strings.Join([]string{rootPath, scopesPrefix, ""}, delimiter)
}

// observedVersions remembers the seed version read by the latest GetData of every scope.
type observedVersions[T any] struct {
	lock     sync.Mutex
	versions map[string]T
}

func newObservedVersions[T any]() *observedVersions[T] {
	return &observedVersions[T]{
		lock:     sync.Mutex{},
		versions: make(map[string]T),
	}
}

func (o *observedVersions[T]) set(scope string, version T) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.versions[scope] = version
}

func (o *observedVersions[T]) get(scope string) (T, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()

	v, ok := o.versions[scope]
	return v, ok
}
