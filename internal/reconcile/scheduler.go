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

package reconcile

import (
	"context"
	"sync"
	"time"

	"bridge-reconcile-go/internal/dedup"
	"bridge-reconcile-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner is the engine surface the scheduler drives
type Runner interface {
	SyncBatch(ctx context.Context) (*models.BatchResult, error)
	SweepUnmatched(ctx context.Context, lookback time.Duration) (int, error)
}

var _ Runner = (*Engine)(nil)

// SchedulerConfig contains configuration for Scheduler
type SchedulerConfig struct {
	Engine  Runner
	Ledgers *dedup.Ledgers // optional; enables working-index cleanup

	SyncInterval       time.Duration
	ShortSweepInterval time.Duration
	ShortSweepLookback time.Duration
	LongSweepInterval  time.Duration
	LongSweepLookback  time.Duration
	CleanupInterval    time.Duration
	WorkingRecordTTL   time.Duration
}

// Scheduler drives the engine from tickers: primary sync, short and long sweeps,
// and pruning of stale working records.
type Scheduler struct {
	cfg SchedulerConfig

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start launches one goroutine per cadence
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("Starting reconciliation scheduler",
		zap.Duration("sync_interval", s.cfg.SyncInterval),
		zap.Duration("short_sweep_interval", s.cfg.ShortSweepInterval),
		zap.Duration("long_sweep_interval", s.cfg.LongSweepInterval))

	s.loop(ctx, "sync", s.cfg.SyncInterval, true, func(ctx context.Context) {
		if _, err := s.cfg.Engine.SyncBatch(ctx); err != nil {
			zap.L().Error("Sync batch failed", runFields(ctx, zap.Error(err))...)
		}
	})

	s.loop(ctx, "sweep-short", s.cfg.ShortSweepInterval, false, func(ctx context.Context) {
		if _, err := s.cfg.Engine.SweepUnmatched(ctx, s.cfg.ShortSweepLookback); err != nil {
			zap.L().Error("Short sweep failed", runFields(ctx, zap.Error(err))...)
		}
	})

	s.loop(ctx, "sweep-long", s.cfg.LongSweepInterval, false, func(ctx context.Context) {
		if _, err := s.cfg.Engine.SweepUnmatched(ctx, s.cfg.LongSweepLookback); err != nil {
			zap.L().Error("Long sweep failed", runFields(ctx, zap.Error(err))...)
		}
	})

	if s.cfg.Ledgers != nil {
		s.loop(ctx, "cleanup", s.cfg.CleanupInterval, false, func(context.Context) {
			s.cleanupWorkingRecords()
		})
	}
}

// Stop signals every loop and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping reconciliation scheduler")
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	zap.L().Info("Reconciliation scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stage string, interval time.Duration, runNow bool, run func(ctx context.Context)) {
	if interval <= 0 {
		zap.L().Info("Scheduler loop disabled", zap.String("stage", stage))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick := func() {
			runCtx := models.WithRunContext(ctx, &models.RunContext{
				RunId:   uuid.New().String(),
				Trigger: "tick",
				Stage:   stage,
			})
			run(runCtx)
		}

		if runNow {
			tick()
		}

		for {
			select {
			case <-ticker.C:
				tick()
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// cleanupWorkingRecords drops working entries that never matched
func (s *Scheduler) cleanupWorkingRecords() {
	cutoff := time.Now().Add(-s.cfg.WorkingRecordTTL)
	removed := s.cfg.Ledgers.Prune(cutoff)

	if removed > 0 {
		zap.L().Info("Cleaned up stale working records",
			zap.Int("removed", removed),
			zap.Duration("ttl", s.cfg.WorkingRecordTTL))
	}
}
