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

package operation

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/scopeid/scopeid/server/config"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	servicegrpc "github.com/scopeid/scopeid/server/service/grpc"
	scopehttp "github.com/scopeid/scopeid/server/service/http"
	scopestatus "github.com/scopeid/scopeid/server/status"
	"github.com/scopeid/scopeid/server/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func startTestServer(t *testing.T) (*scopestatus.ServerStatus, func()) {
	re := require.New(t)
	store := storage.NewMemoryStore(storage.DefaultInitialSeed)
	generator, err := id.NewGenerator(zap.NewNop(), store, id.Config{BatchSize: 4, MaxWriteAttempts: 3})
	re.NoError(err)

	serverStatus := scopestatus.NewServerStatus()
	api := scopehttp.NewAPI(generator, store, serverStatus, limiter.NewFlowLimiter(config.LimiterConfig{Limit: 100, Burst: 100, Enable: false}))
	server := httptest.NewServer(api.NewAPIRouter())
	viper.Set(RootMetaAddr, strings.TrimPrefix(server.URL, HTTP))
	return serverStatus, server.Close
}

func TestNextIDs(t *testing.T) {
	re := require.New(t)
	_, closeFn := startTestServer(t)
	defer closeFn()

	ids, err := NextIDs("orders", 1)
	re.NoError(err)
	re.Equal([]int64{1}, ids)

	ids, err = NextIDs("orders", 5)
	re.NoError(err)
	re.Equal([]int64{2, 3, 4, 5, 6}, ids)

	_, err = NextIDs("orders", 0)
	re.Error(err)

	scopes, err := ScopesList()
	re.NoError(err)
	re.Equal([]Scope{{Name: "orders", LastID: 6, UpperLimit: 8}}, scopes)

	seeds, err := SeedsList()
	re.NoError(err)
	re.Equal([]Seed{{Scope: "orders", Value: "8"}}, seeds)
}

func TestFlowLimiterAndHealth(t *testing.T) {
	re := require.New(t)
	serverStatus, closeFn := startTestServer(t)
	defer closeFn()

	re.Error(HealthCheck())
	re.NoError(serverStatus.Set(scopestatus.StatusRunning))
	re.NoError(HealthCheck())

	re.NoError(FlowLimiterSet(FlowLimiter{Limit: 7, Burst: 8, Enable: true}))
	limiter, err := FlowLimiterGet()
	re.NoError(err)
	re.Equal(FlowLimiter{Limit: 7, Burst: 8, Enable: true}, limiter)

	re.Error(FlowLimiterSet(FlowLimiter{Limit: -1, Burst: 8, Enable: true}))
}

type grpcHandler struct {
	generator   id.Generator
	flowLimiter *limiter.FlowLimiter
}

func (h *grpcHandler) GetGenerator() id.Generator {
	return h.generator
}

func (h *grpcHandler) GetFlowLimiter() (*limiter.FlowLimiter, error) {
	return h.flowLimiter, nil
}

func TestNextIDsByGrpc(t *testing.T) {
	re := require.New(t)
	store := storage.NewMemoryStore(storage.DefaultInitialSeed)
	generator, err := id.NewGenerator(zap.NewNop(), store, id.Config{BatchSize: 4, MaxWriteAttempts: 3})
	re.NoError(err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	re.NoError(err)
	server := grpc.NewServer()
	servicegrpc.RegisterIDServiceServer(server, servicegrpc.NewService(5*time.Second, &grpcHandler{
		generator:   generator,
		flowLimiter: limiter.NewFlowLimiter(config.LimiterConfig{Enable: false}),
	}))
	go func() {
		_ = server.Serve(listener)
	}()
	defer server.Stop()
	viper.Set(RootGrpcAddr, listener.Addr().String())

	ids, err := NextIDsByGrpc("orders", 6)
	re.NoError(err)
	re.Equal([]int64{1, 2, 3, 4, 5, 6}, ids)
	seeds, err := store.ListSeeds(context.Background())
	re.NoError(err)
	re.Equal([]storage.Seed{{Scope: "orders", Value: "8"}}, seeds)

	_, err = NextIDsByGrpc("orders", 0)
	re.Error(err)

	_, err = NextIDsByGrpc("", 1)
	re.Equal(codes.InvalidArgument, status.Code(errors.Cause(err)))
}
