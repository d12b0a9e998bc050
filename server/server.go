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

package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/scopeid/scopeid/pkg/log"
	"github.com/scopeid/scopeid/server/config"
	"github.com/scopeid/scopeid/server/etcdutil"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	"github.com/scopeid/scopeid/server/service/grpc"
	"github.com/scopeid/scopeid/server/service/http"
	"github.com/scopeid/scopeid/server/status"
	"github.com/scopeid/scopeid/server/storage"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/server/v3/embed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpcserver "google.golang.org/grpc"
)

const (
	reportScopesInterval = 10 * time.Second
	stopServiceTimeout   = 5 * time.Second
)

type Server struct {
	isClosed int32
	status   *status.ServerStatus

	cfg *config.Config

	etcdCfg *embed.Config
	etcdSrv *embed.Etcd
	// etcd client
	etcdCli *clientv3.Client

	store       storage.Store
	generator   *id.GeneratorImpl
	flowLimiter *limiter.FlowLimiter

	httpService  *http.Service
	grpcServer   *grpcserver.Server
	grpcListener net.Listener
	serviceGroup *errgroup.Group

	ctx         context.Context
	bgJobCtx    context.Context
	bgJobCancel func()
	bgJobWg     sync.WaitGroup
}

// CreateServer creates the server instance without starting any services or background jobs.
func CreateServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var etcdCfg *embed.Config
	if cfg.Store.Type == config.StoreTypeEmbedEtcd {
		embedCfg, err := cfg.GenEtcdConfig()
		if err != nil {
			return nil, err
		}
		etcdCfg = embedCfg
	}

	srv := &Server{
		isClosed:    0,
		status:      status.NewServerStatus(),
		cfg:         cfg,
		etcdCfg:     etcdCfg,
		flowLimiter: limiter.NewFlowLimiter(cfg.FlowLimiter),
		ctx:         ctx,
	}
	return srv, nil
}

// Run runs the services and background jobs.
func (srv *Server) Run() error {
	if err := srv.createStore(); err != nil {
		return err
	}

	generator, err := id.NewGenerator(log.GetLogger(), srv.store, srv.cfg.IDConfig())
	if err != nil {
		return errors.WithMessage(err, "create id generator")
	}
	srv.generator = generator

	if err := srv.startServer(); err != nil {
		return err
	}

	srv.startBgJobs()
	if err := srv.status.Set(status.StatusRunning); err != nil {
		return err
	}
	log.Info("server is running", zap.String("store", srv.cfg.Store.Type), zap.Int("httpPort", srv.cfg.HTTPPort), zap.Int("grpcPort", srv.cfg.GrpcPort))

	return nil
}

func (srv *Server) Close() {
	if !atomic.CompareAndSwapInt32(&srv.isClosed, 0, 1) {
		return
	}
	if err := srv.status.Set(status.Terminated); err != nil {
		log.Warn("fail to set server status", zap.Error(err))
	}

	if srv.bgJobCancel != nil {
		srv.stopBgJobs()
	}
	srv.stopServer()

	if srv.store != nil {
		if err := srv.store.Close(); err != nil {
			log.Error("fail to close store", zap.Error(err))
		}
	}
	if srv.etcdCli != nil {
		if err := srv.etcdCli.Close(); err != nil {
			log.Error("fail to close client", zap.Error(err))
		}
	}
	if srv.etcdSrv != nil {
		srv.etcdSrv.Close()
	}
}

func (srv *Server) IsClosed() bool {
	return atomic.LoadInt32(&srv.isClosed) == 1
}

func (srv *Server) GetGenerator() id.Generator {
	return srv.generator
}

func (srv *Server) GetFlowLimiter() (*limiter.FlowLimiter, error) {
	if srv.flowLimiter == nil {
		return nil, ErrFlowLimiterNotFound
	}
	return srv.flowLimiter, nil
}

func (srv *Server) createStore() error {
	switch srv.cfg.Store.Type {
	case config.StoreTypeEmbedEtcd:
		if err := srv.startEtcd(); err != nil {
			return err
		}
		return srv.createEtcdStore([]string{srv.etcdCfg.ACUrls[0].String()})
	case config.StoreTypeEtcd:
		return srv.createEtcdStore(srv.cfg.EtcdEndpoints())
	case config.StoreTypeBolt:
		store, err := storage.OpenBoltStore(srv.cfg.Store.BoltPath, srv.cfg.Generator.InitialSeed)
		if err != nil {
			return ErrCreateStore.WithCause(err)
		}
		srv.store = store
	case config.StoreTypeSQLite:
		store, err := storage.OpenSQLiteStore(srv.cfg.Store.SQLitePath, srv.cfg.Generator.InitialSeed)
		if err != nil {
			return ErrCreateStore.WithCause(err)
		}
		srv.store = store
	case config.StoreTypeMemory:
		srv.store = storage.NewMemoryStore(srv.cfg.Generator.InitialSeed)
	default:
		return ErrCreateStore.WithCausef("unknown store type:%s", srv.cfg.Store.Type)
	}
	return nil
}

func (srv *Server) createEtcdStore(endpoints []string) error {
	client, err := etcdutil.NewClient(srv.cfg.EtcdDialTimeout(), endpoints...)
	if err != nil {
		return ErrCreateEtcdClient.WithCause(err)
	}
	srv.etcdCli = client
	srv.store = storage.NewEtcdStore(client, srv.cfg.Store.RootPath, srv.cfg.Generator.InitialSeed, srv.cfg.EtcdCallTimeout())
	return nil
}

func (srv *Server) startEtcd() error {
	etcdSrv, err := embed.StartEtcd(srv.etcdCfg)
	if err != nil {
		return ErrStartEtcd.WithCause(err)
	}
	srv.etcdSrv = etcdSrv

	newCtx, cancel := context.WithTimeout(srv.ctx, srv.cfg.EtcdStartTimeout())
	defer cancel()

	select {
	case <-etcdSrv.Server.ReadyNotify():
	case <-newCtx.Done():
		return ErrStartEtcdTimeout.WithCausef("timeout is:%v", srv.cfg.EtcdStartTimeout())
	}
	return nil
}

// startServer starts the http/grpc services.
func (srv *Server) startServer() error {
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", srv.cfg.GrpcPort))
	if err != nil {
		return ErrStartServer.WithCause(err)
	}
	srv.grpcListener = grpcListener
	srv.grpcServer = grpcserver.NewServer()
	grpc.RegisterIDServiceServer(srv.grpcServer, grpc.NewService(srv.cfg.GrpcHandleTimeout(), srv))

	api := http.NewAPI(srv.generator, srv.store, srv.status, srv.flowLimiter)
	srv.httpService = http.NewHTTPService(srv.cfg.HTTPPort, srv.cfg.HTTPReadTimeout(), srv.cfg.HTTPWriteTimeout(), api.NewAPIRouter())

	srv.serviceGroup = &errgroup.Group{}
	srv.serviceGroup.Go(func() error {
		if err := srv.grpcServer.Serve(grpcListener); err != nil {
			log.Error("grpc service stopped", zap.Error(err))
			return err
		}
		return nil
	})
	srv.serviceGroup.Go(func() error {
		if err := srv.httpService.Start(); err != nil {
			log.Error("http service stopped", zap.Error(err))
			return err
		}
		return nil
	})
	return nil
}

func (srv *Server) stopServer() {
	if srv.serviceGroup == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopServiceTimeout)
	defer cancel()
	if err := srv.httpService.Stop(ctx); err != nil {
		log.Error("fail to stop http service", zap.Error(err))
	}
	srv.grpcServer.GracefulStop()

	if err := srv.serviceGroup.Wait(); err != nil {
		log.Warn("service exits with error", zap.Error(err))
	}
}

func (srv *Server) startBgJobs() {
	srv.bgJobCtx, srv.bgJobCancel = context.WithCancel(srv.ctx)

	srv.bgJobWg = sync.WaitGroup{}
	srv.bgJobWg.Add(1)
	go srv.reportScopes()
}

func (srv *Server) stopBgJobs() {
	srv.bgJobCancel()
	srv.bgJobWg.Wait()
}

// reportScopes exports the reservation state of the scopes periodically.
func (srv *Server) reportScopes() {
	defer srv.bgJobWg.Done()

	ticker := time.NewTicker(reportScopesInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			updateScopeMetrics(srv.generator.Scopes())
		case <-srv.bgJobCtx.Done():
			log.Info("stop reporting scopes")
			return
		}
	}
}

func updateScopeMetrics(scopes []id.ScopeSnapshot) {
	scopeCountGauge.Set(float64(len(scopes)))
	for _, scope := range scopes {
		reservedIDGauge.WithLabelValues(scope.Name).Set(float64(scope.UpperLimit - scope.LastID))
	}
}
