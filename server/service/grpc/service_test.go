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

package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/scopeid/scopeid/server/config"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	"github.com/scopeid/scopeid/server/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type testHandler struct {
	generator   id.Generator
	flowLimiter *limiter.FlowLimiter
}

func (h *testHandler) GetGenerator() id.Generator {
	return h.generator
}

func (h *testHandler) GetFlowLimiter() (*limiter.FlowLimiter, error) {
	return h.flowLimiter, nil
}

func startTestService(t *testing.T, store id.OptimisticStore, limiterConfig config.LimiterConfig) (*Client, func()) {
	re := require.New(t)
	generator, err := id.NewGenerator(zap.NewNop(), store, id.Config{BatchSize: 5, MaxWriteAttempts: 3})
	re.NoError(err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	re.NoError(err)
	server := grpc.NewServer()
	RegisterIDServiceServer(server, NewService(5*time.Second, &testHandler{
		generator:   generator,
		flowLimiter: limiter.NewFlowLimiter(limiterConfig),
	}))
	go func() {
		_ = server.Serve(listener)
	}()

	client, err := NewClient(context.Background(), listener.Addr().String())
	re.NoError(err)
	return client, func() {
		re.NoError(client.Close())
		server.Stop()
	}
}

func TestNextIDService(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()
	store := storage.NewMemoryStore(storage.DefaultInitialSeed)
	client, closeFn := startTestService(t, store, config.LimiterConfig{Enable: false})
	defer closeFn()

	for i := int64(1); i <= 12; i++ {
		nextID, err := client.NextID(ctx, "orders")
		re.NoError(err)
		re.Equal(i, nextID)
	}

	_, err := client.NextID(ctx, "")
	re.Equal(codes.InvalidArgument, status.Code(err))

	store.Put("broken", "not-a-number")
	_, err = client.NextID(ctx, "broken")
	re.Equal(codes.DataLoss, status.Code(err))
}

type conflictStore struct {
	*storage.MemoryStore
}

func (s conflictStore) TryOptimisticWrite(_ context.Context, _ string, _ string) (bool, error) {
	return false, nil
}

func TestNextIDServiceError(t *testing.T) {
	re := require.New(t)
	ctx := context.Background()

	client, closeFn := startTestService(t, conflictStore{storage.NewMemoryStore(storage.DefaultInitialSeed)}, config.LimiterConfig{Enable: false})
	_, err := client.NextID(ctx, "orders")
	re.Equal(codes.Aborted, status.Code(err))
	closeFn()

	client, closeFn = startTestService(t, storage.NewMemoryStore(storage.DefaultInitialSeed), config.LimiterConfig{Limit: 1, Burst: 1, Enable: true})
	defer closeFn()
	_, err = client.NextID(ctx, "orders")
	re.NoError(err)
	_, err = client.NextID(ctx, "orders")
	re.Equal(codes.ResourceExhausted, status.Code(err))
}

type timeoutStore struct {
	*storage.MemoryStore
}

func (s timeoutStore) GetData(_ context.Context, _ string) (string, error) {
	return "", storage.ErrStoreRead.WithCause(context.DeadlineExceeded)
}

func TestNextIDServiceStoreTimeout(t *testing.T) {
	re := require.New(t)

	client, closeFn := startTestService(t, timeoutStore{storage.NewMemoryStore(storage.DefaultInitialSeed)}, config.LimiterConfig{Enable: false})
	defer closeFn()
	_, err := client.NextID(context.Background(), "orders")
	re.Equal(codes.DeadlineExceeded, status.Code(err))

	re.Equal(codes.DeadlineExceeded, status.Code(toStatusError(storage.ErrStoreRead.WithCause(context.DeadlineExceeded))))
	re.Equal(codes.Canceled, status.Code(toStatusError(storage.ErrStoreWrite.WithCause(context.Canceled))))
	re.Equal(codes.Internal, status.Code(toStatusError(storage.ErrStoreWrite.WithCausef("disk is full"))))
}
