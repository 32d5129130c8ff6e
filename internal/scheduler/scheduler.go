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

package scheduler

import (
	"context"
	"time"

	"inheritance-vault-go/internal/registry"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SchedulerConfig contains configuration for Scheduler.
type SchedulerConfig struct {
	Registry        *registry.Registry
	Clock           clockwork.Clock
	PollingInterval time.Duration
}

// Scheduler drives the registry's check-then-execute cycle on a fixed
// interval. It is the only component that advances the scan cursor; vault
// state changes happen through the engine the registry wraps.
type Scheduler struct {
	registry        *registry.Registry
	clock           clockwork.Clock
	pollingInterval time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		registry:        cfg.Registry,
		clock:           cfg.Clock,
		pollingInterval: cfg.PollingInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start begins the polling loop.
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("Starting distribution scheduler",
		zap.Duration("polling_interval", s.pollingInterval),
		zap.Int("tracked_vaults", s.registry.Len()))

	go s.pollLoop(ctx)
}

// Stop gracefully stops the scheduler, waiting for an in-flight cycle.
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping distribution scheduler")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Distribution scheduler stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := s.clock.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ticker.Chan():
			s.runCycle(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle performs one check-then-execute pass over the next batch window.
func (s *Scheduler) runCycle(ctx context.Context) {
	ready, nextCursor, err := s.registry.Check(ctx)
	if err != nil {
		zap.L().Error("Registry check failed", zap.Error(err))
		return
	}

	processed, err := s.registry.Execute(ctx, ready, nextCursor)
	if err != nil {
		zap.L().Error("Registry execute failed",
			zap.Int("processed", processed), zap.Error(err))
		return
	}

	if len(ready) > 0 || processed > 0 {
		zap.L().Info("Distribution cycle completed",
			zap.Int("ready", len(ready)),
			zap.Int("processed", processed),
			zap.Int("cursor", s.registry.Cursor()),
			zap.Int("tracked_vaults", s.registry.Len()))
	} else {
		zap.L().Debug("Distribution cycle found nothing ready",
			zap.Int("cursor", s.registry.Cursor()),
			zap.Int("tracked_vaults", s.registry.Len()))
	}
}
