/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
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
	"flag"
	"os"
	"os/signal"
	"syscall"

	"inheritance-vault-go/internal/api"
	"inheritance-vault-go/internal/common"
	"inheritance-vault-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	listenAddr := flag.String("listen", "", "Override the listen address from configuration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting vault query API")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	serverCfg := cfg.Server
	if *listenAddr != "" {
		serverCfg.ListenAddr = *listenAddr
	}

	srv := api.NewServer(serverCfg, services.Engine, services.Registry, services.DbService)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		zap.L().Info("Shutdown signal received")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		zap.L().Fatal("HTTP server failed", zap.Error(err))
	}
	zap.L().Info("Server stopped gracefully")
}
