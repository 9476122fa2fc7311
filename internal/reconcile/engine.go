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
	"errors"
	"sync/atomic"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrTransferNotFound          = errors.New("transfer not found")
	ErrBridgeTransactionNotFound = errors.New("bridge transaction not found")
	ErrLegNotFound               = errors.New("legacy leg not found")
	ErrUnknownVersion            = errors.New("unknown transfer version")
	ErrInvalidAmount             = errors.New("invalid amount")
)

// Queue topics the engine publishes to
const (
	TopicPointsSystemTransaction = "pointsSystemTransaction"
)

// ChainRegistry is the chain metadata the engine needs
type ChainRegistry interface {
	ChainInfo(chainId string) (*models.ChainInfo, error)
	TokenBySymbol(chainId, symbol string) (*models.Token, error)
	IsRouter(chainId, address string) bool
}

// Publisher emits follow-up messages after a settlement
type Publisher interface {
	Publish(ctx context.Context, topic string, body any) error
}

// EngineConfig contains configuration for Engine
type EngineConfig struct {
	Source    store.SourceLedger
	Legacy    store.LegacyLedger
	Chains    ChainRegistry
	Publisher Publisher // optional

	BatchSize  int
	MinAge     time.Duration
	MaxAge     time.Duration
	SweepLimit int

	Clock func() time.Time
}

// Engine mirrors source-ledger transfers into the legacy ledger and pairs settled legs
type Engine struct {
	source    store.SourceLedger
	legacy    store.LegacyLedger
	chains    ChainRegistry
	publisher Publisher

	batchSize  int
	minAge     time.Duration
	maxAge     time.Duration
	sweepLimit int
	clock      func() time.Time

	// non-reentrant guard for SyncBatch
	syncing atomic.Bool
}

// NewEngine creates a new reconciliation engine
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		source:     cfg.Source,
		legacy:     cfg.Legacy,
		chains:     cfg.Chains,
		publisher:  cfg.Publisher,
		batchSize:  cfg.BatchSize,
		minAge:     cfg.MinAge,
		maxAge:     cfg.MaxAge,
		sweepLimit: cfg.SweepLimit,
		clock:      cfg.Clock,
	}
	if e.batchSize <= 0 {
		e.batchSize = 500
	}
	if e.minAge <= 0 {
		e.minAge = time.Minute
	}
	if e.maxAge <= 0 {
		e.maxAge = 120 * time.Minute
	}
	if e.sweepLimit <= 0 {
		e.sweepLimit = 1000
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// Ping checks both ledgers.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.source.Ping(ctx); err != nil {
		return err
	}
	return e.legacy.Ping(ctx)
}

func runFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	if rc := models.GetRunContext(ctx); rc != nil {
		fields = append(fields,
			zap.String("run_id", rc.RunId),
			zap.String("trigger", rc.Trigger),
			zap.String("stage", rc.Stage))
	}
	return fields
}
