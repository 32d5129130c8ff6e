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

package api

import (
	"context"
	"net/http"
	"time"

	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server exposes the read-only query surface over HTTP. All mutation goes
// through the engine and factory directly; the API never writes.
type Server struct {
	router   *chi.Mux
	engine   *vault.Engine
	registry *registry.Registry
	store    store.VaultStore
	cfg      models.ServerConfig
	srv      *http.Server
}

func NewServer(cfg models.ServerConfig, engine *vault.Engine, reg *registry.Registry, st store.VaultStore) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		engine:   engine,
		registry: reg,
		store:    st,
		cfg:      cfg,
	}

	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/vaults/{vaultId}", func(r chi.Router) {
		r.Get("/", s.handleGetVault)
		r.Get("/balances", s.handleGetVaultBalances)
		r.Get("/history", s.handleGetVaultHistory)
	})

	s.router.Route("/registry", func(r chi.Router) {
		r.Get("/vaults", s.handleRegistryVaults)
		r.Get("/status", s.handleRegistryStatus)
	})

	s.router.Get("/owners/{address}/vaults", s.handleVaultsByOwner)
	s.router.Get("/heirs/{address}/vaults", s.handleVaultsByHeir)
}

// Start runs the listener until the context is canceled, then drains with the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP API listening", zap.String("addr", s.cfg.ListenAddr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	zap.L().Info("Shutting down HTTP API")
	return s.srv.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
