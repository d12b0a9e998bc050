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
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newTestGenerator(t *testing.T, store OptimisticStore, batchSize int64, maxWriteAttempts int) *GeneratorImpl {
	g, err := NewGenerator(zap.NewNop(), store, Config{BatchSize: batchSize, MaxWriteAttempts: maxWriteAttempts})
	require.NoError(t, err)
	return g
}

func TestNewGeneratorInvalidConfig(t *testing.T) {
	re := require.New(t)
	store := newFakeStore(newSeedBackend())

	for _, cfg := range []Config{
		{BatchSize: 100, MaxWriteAttempts: 0},
		{BatchSize: 100, MaxWriteAttempts: -3},
		{BatchSize: 0, MaxWriteAttempts: 25},
	} {
		_, err := NewGenerator(zap.NewNop(), store, cfg)
		re.Error(err)
		re.True(coderr.Is(err, coderr.InvalidParams), "cfg:%+v, err:%v", cfg, err)
	}

	g, err := NewGenerator(zap.NewNop(), store, DefaultConfig())
	re.NoError(err)
	re.Equal(DefaultBatchSize, g.batchSize)
	re.Equal(DefaultMaxWriteAttempts, g.maxWriteAttempts)

	g, err = NewGenerator(zap.NewNop(), store, Config{BatchSize: 1, MaxWriteAttempts: 1})
	re.NoError(err)
	re.NotNil(g)
}

// Batch 100 starting from seed "0".
func TestNextIDOrders(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("orders", "0")
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 100, 25)

	id, err := g.NextID(ctx, "orders")
	re.NoError(err)
	re.Equal(int64(1), id)
	re.Equal("100", backend.get("orders"))

	for i := 2; i <= 100; i++ {
		id, err := g.NextID(ctx, "orders")
		re.NoError(err)
		re.Equal(int64(i), id)
	}
	gets, writes := store.counts("orders")
	re.Equal(1, gets)
	re.Equal(1, writes)

	id, err = g.NextID(ctx, "orders")
	re.NoError(err)
	re.Equal(int64(101), id)
	re.Equal("200", backend.get("orders"))
	re.Equal([]string{"100", "200"}, store.written["orders"])
}

func TestBatchExactness(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("invoices", "4200")
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 7, 3)

	for i := int64(1); i <= 7; i++ {
		id, err := g.NextID(ctx, "invoices")
		re.NoError(err)
		re.Equal(4200+i, id)
	}
	re.Equal([]string{"4207"}, store.written["invoices"])

	snapshots := g.Scopes()
	re.Equal([]ScopeSnapshot{{Name: "invoices", LastID: 4207, UpperLimit: 4207}}, snapshots)
}

func TestCorruptSeed(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("orders", "not-a-number")
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 100, 25)

	_, err := g.NextID(ctx, "orders")
	re.Error(err)
	re.True(coderr.Is(err, coderr.DataCorrupted))

	var corruptErr *CorruptSeedError
	re.True(stderrors.As(err, &corruptErr))
	re.Equal("orders", corruptErr.Scope)
	re.Equal("not-a-number", corruptErr.Data)

	gets, writes := store.counts("orders")
	re.Equal(1, gets)
	re.Equal(0, writes)

	// The state is untouched, so a repaired seed is picked up by the next call.
	backend.set("orders", "10")
	id, err := g.NextID(ctx, "orders")
	re.NoError(err)
	re.Equal(int64(11), id)
}

func TestPaddedSeed(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("receipts", "100\n")
	backend.set("refunds", " 300 ")
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 100, 25)

	id, err := g.NextID(ctx, "receipts")
	re.NoError(err)
	re.Equal(int64(101), id)
	re.Equal("200", backend.get("receipts"))

	id, err = g.NextID(ctx, "refunds")
	re.NoError(err)
	re.Equal(int64(301), id)
	re.Equal("400", backend.get("refunds"))
}

func TestSeedOverflow(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("overflowing", "9223372036854775800")
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 100, 25)

	_, err := g.NextID(ctx, "overflowing")
	re.Error(err)
	re.True(coderr.Is(err, coderr.Internal))
	re.Contains(err.Error(), "id seed overflow")
	re.Equal(float64(1), testutil.ToFloat64(replenishCounter.WithLabelValues("overflowing", replenishResultOverflow)))

	_, writes := store.counts("overflowing")
	re.Equal(0, writes)
	re.Equal("9223372036854775800", backend.get("overflowing"))
}

func TestContentionExhaustion(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	store := newFakeStore(backend)
	store.alwaysConflict = true
	g := newTestGenerator(t, store, 100, 5)

	_, err := g.NextID(ctx, "orders")
	re.Error(err)
	re.True(coderr.Is(err, coderr.Conflict))

	var contentionErr *ContentionError
	re.True(stderrors.As(err, &contentionErr))
	re.Equal(5, contentionErr.Attempts)
	re.Equal("orders", contentionErr.Scope)

	gets, writes := store.counts("orders")
	re.Equal(5, gets)
	re.Equal(5, writes)
	re.Equal([]ScopeSnapshot{{Name: "orders", LastID: 0, UpperLimit: 0}}, g.Scopes())

	store.alwaysConflict = false
	id, err := g.NextID(ctx, "orders")
	re.NoError(err)
	re.Equal(int64(1), id)
}

func TestRetryAfterConcurrentWrite(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("orders", "0")
	store := newFakeStore(backend)

	// Another process reserves (0, 50] between our read and our write once.
	raced := false
	store.beforeWrite = func(scope string) {
		if !raced {
			raced = true
			backend.set(scope, "50")
		}
	}
	g := newTestGenerator(t, store, 10, 3)

	id, err := g.NextID(ctx, "orders")
	re.NoError(err)
	re.Equal(int64(51), id)
	re.Equal("60", backend.get("orders"))

	gets, writes := store.counts("orders")
	re.Equal(2, gets)
	re.Equal(2, writes)
}

func TestStoreError(t *testing.T) {
	re := require.New(t)
	store := newFakeStore(newSeedBackend())
	store.getErr = errors.New("connection refused")
	g := newTestGenerator(t, store, 10, 3)

	_, err := g.NextID(context.Background(), "orders")
	re.Error(err)
	re.Contains(err.Error(), "connection refused")

	gets, writes := store.counts("orders")
	re.Equal(1, gets)
	re.Equal(0, writes)
}

func TestSeedRegressed(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 2, 3)

	ids, err := g.NextIDs(ctx, "orders", 2)
	re.NoError(err)
	re.Equal([]int64{1, 2}, ids)

	backend.set("orders", "1")
	_, err = g.NextID(ctx, "orders")
	re.Error(err)
	re.True(coderr.Is(err, coderr.DataCorrupted))
}

func TestInvalidArguments(t *testing.T) {
	re := require.New(t)
	g := newTestGenerator(t, newFakeStore(newSeedBackend()), 10, 3)

	_, err := g.NextID(context.Background(), "")
	re.True(coderr.Is(err, coderr.InvalidParams))

	_, err = g.NextIDs(context.Background(), "orders", 0)
	re.True(coderr.Is(err, coderr.InvalidParams))
	re.Empty(g.Scopes())
}

func TestNextIDsAcrossBatches(t *testing.T) {
	re := require.New(t)
	backend := newSeedBackend()
	store := newFakeStore(backend)
	g := newTestGenerator(t, store, 4, 3)

	ids, err := g.NextIDs(context.Background(), "orders", 10)
	re.NoError(err)
	re.Equal([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids)
	re.Equal([]string{"4", "8", "12"}, store.written["orders"])
}

func TestScopeIsolation(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	backend := newSeedBackend()
	backend.set("a", "100")
	backend.set("b", "900")
	store := newFakeStore(backend)

	blocked := make(chan struct{})
	release := make(chan struct{})
	store.beforeGet = func(scope string) {
		if scope == "b" {
			close(blocked)
			<-release
		}
	}
	g := newTestGenerator(t, store, 10, 3)

	done := make(chan int64, 1)
	go func() {
		id, err := g.NextID(ctx, "b")
		if err != nil {
			done <- -1
			return
		}
		done <- id
	}()
	<-blocked

	// Scope b is stuck in its store read, which must not block scope a.
	for i := int64(1); i <= 15; i++ {
		id, err := g.NextID(ctx, "a")
		re.NoError(err)
		re.Equal(100+i, id)
	}
	// The hook parks b before its read is counted.
	gets, _ := store.counts("b")
	re.Equal(0, gets)

	close(release)
	select {
	case id := <-done:
		re.Equal(int64(901), id)
	case <-time.After(10 * time.Second):
		re.FailNow("scope b is never released")
	}
	gets, _ = store.counts("b")
	re.Equal(1, gets)
	re.Equal("910", backend.get("b"))
	re.Equal("120", backend.get("a"))
}

// Several processes, each with many goroutines, share one backend.
func TestConcurrentUniqueness(t *testing.T) {
	re := require.New(t)
	const (
		processNum   = 3
		goroutineNum = 8
		callNum      = 300
	)
	backend := newSeedBackend()

	var lock sync.Mutex
	seen := make(map[int64]struct{}, processNum*goroutineNum*callNum)

	var eg errgroup.Group
	for p := 0; p < processNum; p++ {
		g := newTestGenerator(t, newFakeStore(backend), 7, 1000)
		for i := 0; i < goroutineNum; i++ {
			eg.Go(func() error {
				last := int64(0)
				for c := 0; c < callNum; c++ {
					id, err := g.NextID(context.Background(), "orders")
					if err != nil {
						return err
					}
					if id <= last {
						return fmt.Errorf("id is not increasing, last:%d, id:%d", last, id)
					}
					last = id

					lock.Lock()
					if _, ok := seen[id]; ok {
						lock.Unlock()
						return fmt.Errorf("duplicated id:%d", id)
					}
					seen[id] = struct{}{}
					lock.Unlock()
				}
				return nil
			})
		}
	}
	re.NoError(eg.Wait())
	re.Len(seen, processNum*goroutineNum*callNum)
}

func TestRegistryGetOrCreate(t *testing.T) {
	re := require.New(t)
	r := newScopeRegistry()

	const n = 64
	states := make([]*scopeState, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = r.getOrCreate("Orders")
		}(i)
	}
	wg.Wait()

	for _, s := range states {
		re.Same(states[0], s)
	}
	// Scope names are case-sensitive.
	re.NotSame(states[0], r.getOrCreate("orders"))
	re.Len(r.snapshot(), 2)
}
