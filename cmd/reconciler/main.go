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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bridge-reconcile-go/internal/api"
	"bridge-reconcile-go/internal/arbitration"
	"bridge-reconcile-go/internal/common"
	"bridge-reconcile-go/internal/config"
	"bridge-reconcile-go/internal/queue"
	"bridge-reconcile-go/internal/reconcile"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting bridge reconciler")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Error("Failed to initialize services", zap.Error(err))
		return 1
	}
	defer services.Close()

	scheduler := reconcile.NewScheduler(reconcile.SchedulerConfig{
		Engine:             services.Engine,
		Ledgers:            services.Ledgers,
		SyncInterval:       cfg.Reconcile.SyncInterval,
		ShortSweepInterval: cfg.Reconcile.ShortSweepInterval,
		ShortSweepLookback: cfg.Reconcile.ShortSweepLookback,
		LongSweepInterval:  cfg.Reconcile.LongSweepInterval,
		LongSweepLookback:  cfg.Reconcile.LongSweepLookback,
		CleanupInterval:    cfg.Reconcile.CleanupInterval,
		WorkingRecordTTL:   cfg.Reconcile.WorkingRecordTTL,
	})
	scheduler.Start(ctx)

	var arbiter *arbitration.Service
	if cfg.Arbitration.Enabled {
		arbiter, err = common.InitializeArbitration(ctx, cfg, services)
		if err != nil {
			zap.L().Error("Failed to initialize arbitration", zap.Error(err))
			scheduler.Stop()
			return 1
		}
		arbiter.Start(ctx)
	} else {
		zap.L().Info("Arbitration disabled")
	}

	fatal := make(chan error, 2)
	var consumerWg sync.WaitGroup
	if cfg.Queue.URL != "" {
		consumer := queue.NewConsumer(queue.ConsumerConfig{
			URL:               cfg.Queue.URL,
			Prefetch:          cfg.Queue.Prefetch,
			ReconnectAttempts: cfg.Queue.ReconnectAttempts,
			ReconnectDelay:    cfg.Queue.ReconnectDelay,
			Alerter:           services.Alerter,
		})
		handlers := &queue.Handlers{
			Reconciler: services.Engine,
			Ledgers:    services.Ledgers,
			Locks:      services.Locks,
			Tokens:     services.Registry,
			Bridges:    services.Source,
		}
		if arbiter != nil {
			handlers.Challenger = arbiter
		}
		handlers.Register(consumer)

		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			if err := consumer.Run(ctx); err != nil {
				fatal <- err
			}
		}()
	} else {
		zap.L().Info("QUEUE_URL not set, queue consumption disabled")
	}

	ops := api.NewOpsService(services.Engine, map[string]api.Pinger{
		"ledgers": services.Engine,
	})
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(ops),
	}
	go func() {
		zap.L().Info("Ops server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- err
		}
	}()

	zap.L().Info("Reconciler running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)

	exitCode := 0
wait:
	for {
		select {
		case <-hupChan:
			if err := services.Registry.Reload(); err != nil {
				zap.L().Error("Chain registry reload failed, keeping previous snapshot", zap.Error(err))
			}
		case <-sigChan:
			zap.L().Info("Shutdown signal received, stopping components...")
			break wait
		case err := <-fatal:
			zap.L().Error("Fatal component failure, shutting down", zap.Error(err))
			exitCode = 1
			break wait
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("Ops server shutdown error", zap.Error(err))
		}
		cancel()
		consumerWg.Wait()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()
		if arbiter != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				arbiter.Stop()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("All components stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	return exitCode
}
