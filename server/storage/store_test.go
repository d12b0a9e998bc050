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
	"path/filepath"
	"testing"
	"time"

	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/server/etcdutil"
	"github.com/stretchr/testify/require"
)

const defaultRequestTimeout = time.Second * 10

func testOptimisticWrite(re *require.Assertions, s Store, initialSeed string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()

	// Writing before reading has nothing to compare against.
	_, err := s.TryOptimisticWrite(ctx, "never-read", "10")
	re.True(coderr.Is(err, coderr.Internal))

	v, err := s.GetData(ctx, "orders")
	re.NoError(err)
	re.Equal(initialSeed, v)

	ok, err := s.TryOptimisticWrite(ctx, "orders", "100")
	re.NoError(err)
	re.True(ok)

	// The observed seed is stale after the write.
	ok, err = s.TryOptimisticWrite(ctx, "orders", "200")
	re.NoError(err)
	re.False(ok)

	v, err = s.GetData(ctx, "orders")
	re.NoError(err)
	re.Equal("100", v)
	ok, err = s.TryOptimisticWrite(ctx, "orders", "200")
	re.NoError(err)
	re.True(ok)

	// Scopes are case-sensitive and independent.
	v, err = s.GetData(ctx, "Orders")
	re.NoError(err)
	re.Equal(initialSeed, v)

	seeds, err := s.ListSeeds(ctx)
	re.NoError(err)
	re.Equal([]Seed{{Scope: "Orders", Value: initialSeed}, {Scope: "orders", Value: "200"}}, seeds)
}

func TestMemoryStore(t *testing.T) {
	re := require.New(t)
	s := NewMemoryStore(DefaultInitialSeed)
	testOptimisticWrite(re, s, "0")

	ctx := context.Background()
	_, err := s.GetData(ctx, "invoices")
	re.NoError(err)
	// Someone else modifies the seed between the read and the write.
	s.Put("invoices", "7")
	ok, err := s.TryOptimisticWrite(ctx, "invoices", "100")
	re.NoError(err)
	re.False(ok)
	re.NoError(s.Close())
}

func TestBoltStore(t *testing.T) {
	re := require.New(t)
	path := filepath.Join(t.TempDir(), "seeds.db")

	s, err := OpenBoltStore(path, 1)
	re.NoError(err)
	testOptimisticWrite(re, s, "1")
	re.NoError(s.Close())

	// Seeds survive reopening.
	s, err = OpenBoltStore(path, 1)
	re.NoError(err)
	defer s.Close()
	v, err := s.GetData(context.Background(), "orders")
	re.NoError(err)
	re.Equal("200", v)
}

func TestSQLiteStore(t *testing.T) {
	re := require.New(t)
	path := filepath.Join(t.TempDir(), "seeds.sqlite3")

	s, err := OpenSQLiteStore(path, DefaultInitialSeed)
	re.NoError(err)
	defer s.Close()
	testOptimisticWrite(re, s, "0")

	// Another process opens the same file, and the seed written by it is visible here.
	other, err := OpenSQLiteStore(path, DefaultInitialSeed)
	re.NoError(err)
	defer other.Close()

	ctx := context.Background()
	_, err = s.GetData(ctx, "orders")
	re.NoError(err)
	v, err := other.GetData(ctx, "orders")
	re.NoError(err)
	re.Equal("200", v)
	ok, err := other.TryOptimisticWrite(ctx, "orders", "300")
	re.NoError(err)
	re.True(ok)

	ok, err = s.TryOptimisticWrite(ctx, "orders", "300")
	re.NoError(err)
	re.False(ok)
}

func TestEtcdStore(t *testing.T) {
	re := require.New(t)
	_, client, closeSrv := etcdutil.PrepareEtcdServerAndClient(t)
	defer closeSrv()

	s := NewEtcdStore(client, "/scopeid/test", DefaultInitialSeed, defaultRequestTimeout)
	testOptimisticWrite(re, s, "0")
	re.NoError(s.Close())

	ctx := context.Background()
	v, err := etcdutil.Get(ctx, client, "/scopeid/test/scopes/orders")
	re.NoError(err)
	re.Equal("200", v)
}

// Two processes read a missing seed at the same time, and only one of them creates it.
func TestEtcdStoreConcurrentInit(t *testing.T) {
	re := require.New(t)
	_, client, closeSrv := etcdutil.PrepareEtcdServerAndClient(t)
	defer closeSrv()

	ctx := context.Background()
	s1 := NewEtcdStore(client, "/scopeid/test", 5, defaultRequestTimeout)
	s2 := NewEtcdStore(client, "/scopeid/test", 5, defaultRequestTimeout)

	v1, err := s1.GetData(ctx, "orders")
	re.NoError(err)
	v2, err := s2.GetData(ctx, "orders")
	re.NoError(err)
	re.Equal("5", v1)
	re.Equal("5", v2)

	ok, err := s2.TryOptimisticWrite(ctx, "orders", "105")
	re.NoError(err)
	re.True(ok)
	ok, err = s1.TryOptimisticWrite(ctx, "orders", "105")
	re.NoError(err)
	re.False(ok)
}
