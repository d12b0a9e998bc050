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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/pkg/log"
	"github.com/scopeid/scopeid/server"
	"github.com/scopeid/scopeid/server/config"
	"go.uber.org/zap"
)

func main() {
	cfgParser, err := config.MakeConfigParser()
	if err != nil {
		log.Fatal("fail to generate config builder", zap.Error(err))
	}

	cfg, err := cfgParser.Parse(os.Args[1:])
	if coderr.Is(err, coderr.PrintHelpUsage) {
		return
	}
	if err != nil {
		log.Fatal("fail to parse config from command line params", zap.Error(err))
	}

	if err := cfg.ValidateAndAdjust(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	if _, err := log.InitGlobalLogger(&cfg.Log); err != nil {
		log.Fatal("fail to init global logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := server.CreateServer(ctx, cfg)
	if err != nil {
		log.Error("fail to create server", zap.Error(err))
		return
	}
	defer srv.Close()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	var sig os.Signal
	go func() {
		sig = <-sc
		cancel()
	}()

	if err := srv.Run(); err != nil {
		log.Error("fail to run server", zap.Error(err))
		return
	}

	<-ctx.Done()
	log.Info("got signal to exit", zap.Any("signal", sig))
}
