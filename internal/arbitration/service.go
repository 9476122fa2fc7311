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

package arbitration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bridge-reconcile-go/internal/alert"
	"bridge-reconcile-go/internal/dedup"
	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarkerNamespace scopes challenge markers in the shared marker store
const MarkerNamespace = "arbitration"

// Marker value prefixes. A bare transaction hash marks a confirmed challenge.
const (
	markerSubmitted = "submitted:"
	markerReverted  = "reverted:"
)

var ErrStopped = errors.New("arbitration service stopped")

// ChainRegistry is the subset of the chain registry arbitration reads
type ChainRegistry interface {
	ChainInfo(chainId string) (*models.ChainInfo, error)
	TokenBySymbol(chainId, symbol string) (*models.Token, error)
	MakerDepositContract(owner string) (string, error)
}

// CandidateSource yields source transfers that may need a challenge
type CandidateSource interface {
	FindChallengeCandidates(ctx context.Context, filter store.ChallengeCandidateFilter) ([]store.ChallengeCandidate, error)
}

// ServiceConfig contains configuration for Service
type ServiceConfig struct {
	Chains  ChainRegistry
	Source  CandidateSource // optional; enables the periodic scan
	Wallet  Wallet
	Markers *dedup.Ledger
	Alerter alert.Alerter

	MakerOwner     string
	ScanInterval   time.Duration
	ScanLookback   time.Duration
	ScanLimit      int
	RPCTimeout     time.Duration
	ConfirmTimeout time.Duration
	QueueSize      int
	Clock          func() time.Time
}

// Result is the outcome of one challenge attempt
type Result struct {
	FromHash  string `json:"fromHash"`
	State     State  `json:"state"`
	TxHash    string `json:"txHash,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Service evaluates disputed transfers and submits challenges for the eligible ones
type Service struct {
	cfg ServiceConfig

	inFlight sync.Map
	requests chan models.ChallengeRequest

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Alerter == nil {
		cfg.Alerter = alert.LogAlerter{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 30 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 200
	}

	return &Service{
		cfg:      cfg,
		requests: make(chan models.ChallengeRequest, cfg.QueueSize),
		stopChan: make(chan struct{}),
	}
}

// Challenge runs one transaction through ineligible/eligible/submitted/confirmed/failed.
// A nil error with StateIneligible means nothing was sent. A transfer with a
// challenge already on chain is never sent again; its marker is resumed instead.
func (s *Service) Challenge(ctx context.Context, tx *models.ArbitrationTransaction) (*Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction", ErrMissingField)
	}

	hash := strings.ToLower(tx.FromHash)
	result := &Result{FromHash: hash, State: StateIneligible}

	if err := validate(tx); err != nil {
		return s.fail(ctx, result, tx, err)
	}

	chain, err := s.cfg.Chains.ChainInfo(tx.FromChainId)
	if err != nil {
		zap.L().Debug("Chain info unavailable, skipping challenge",
			zap.String("from_hash", hash),
			zap.String("from_chain_id", tx.FromChainId),
			zap.Error(err))
		challengesTotal.WithLabelValues(string(StateIneligible)).Inc()
		return result, nil
	}

	if !Eligible(tx, chain, s.cfg.Clock()) {
		challengesTotal.WithLabelValues(string(StateIneligible)).Inc()
		return result, nil
	}
	result.State = StateEligible

	if _, loaded := s.inFlight.LoadOrStore(hash, struct{}{}); loaded {
		result.State = StateSubmitted
		result.Duplicate = true
		return result, nil
	}
	defer s.inFlight.Delete(hash)

	if s.cfg.Markers != nil {
		marker, found, err := s.cfg.Markers.Marker(ctx, hash)
		if err != nil {
			return s.fail(ctx, result, tx, fmt.Errorf("failed to read challenge marker: %w", err))
		}
		if found {
			return s.resume(ctx, result, tx, marker)
		}
	}

	contract, err := s.cfg.Chains.MakerDepositContract(s.cfg.MakerOwner)
	if err != nil {
		return s.fail(ctx, result, tx, err)
	}

	challenge, err := BuildChallenge(tx)
	if err != nil {
		return s.fail(ctx, result, tx, err)
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, s.cfg.RPCTimeout)
	pending, err := s.cfg.Wallet.SendTransaction(sendCtx, common.HexToAddress(contract), challenge.Data, challenge.Value())
	cancelSend()
	if err != nil {
		return s.fail(ctx, result, tx, fmt.Errorf("failed to submit challenge: %w", err))
	}

	result.State = StateSubmitted
	result.TxHash = pending.Hash().Hex()
	s.mark(ctx, hash, markerSubmitted+result.TxHash)

	zap.L().Info("Challenge submitted",
		zap.String("from_hash", hash),
		zap.String("challenge_tx", result.TxHash),
		zap.String("freeze_amount", challenge.FreezeAmount.String()),
		zap.Bool("native", challenge.IsNative()))

	waitCtx, cancelWait := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	receipt, err := pending.Wait(waitCtx)
	cancelWait()
	if err != nil {
		return s.fail(ctx, result, tx, fmt.Errorf("failed waiting for challenge receipt: %w", err))
	}

	return s.settle(ctx, result, tx, receipt)
}

// resume reports on the challenge a marker points at without sending another one.
// A submitted challenge is promoted once its receipt is available.
func (s *Service) resume(ctx context.Context, result *Result, tx *models.ArbitrationTransaction, marker string) (*Result, error) {
	result.Duplicate = true

	switch {
	case strings.HasPrefix(marker, markerReverted):
		result.State = StateFailed
		result.TxHash = strings.TrimPrefix(marker, markerReverted)
		return result, nil
	case strings.HasPrefix(marker, markerSubmitted):
		result.State = StateSubmitted
		result.TxHash = strings.TrimPrefix(marker, markerSubmitted)
	default:
		result.State = StateConfirmed
		result.TxHash = marker
		return result, nil
	}

	receiptCtx, cancel := context.WithTimeout(ctx, s.cfg.RPCTimeout)
	receipt, err := s.cfg.Wallet.Receipt(receiptCtx, common.HexToHash(result.TxHash))
	cancel()
	if err != nil {
		zap.L().Warn("Unable to check pending challenge",
			zap.String("from_hash", result.FromHash),
			zap.String("challenge_tx", result.TxHash),
			zap.Error(err))
		return result, nil
	}
	if receipt == nil {
		zap.L().Debug("Challenge still pending",
			zap.String("from_hash", result.FromHash),
			zap.String("challenge_tx", result.TxHash))
		return result, nil
	}

	return s.settle(ctx, result, tx, receipt)
}

func (s *Service) settle(ctx context.Context, result *Result, tx *models.ArbitrationTransaction, receipt *types.Receipt) (*Result, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		s.mark(ctx, result.FromHash, markerReverted+result.TxHash)
		return s.fail(ctx, result, tx, fmt.Errorf("%w: %s", ErrChallengeReverted, result.TxHash))
	}

	result.State = StateConfirmed
	challengesTotal.WithLabelValues(string(StateConfirmed)).Inc()
	s.mark(ctx, result.FromHash, result.TxHash)

	zap.L().Info("Challenge confirmed",
		zap.String("from_hash", result.FromHash),
		zap.String("challenge_tx", result.TxHash),
		zap.Stringer("block", receipt.BlockNumber))

	return result, nil
}

func (s *Service) mark(ctx context.Context, hash, value string) {
	if s.cfg.Markers == nil {
		return
	}
	if err := s.cfg.Markers.MarkProcessed(ctx, hash, value); err != nil {
		zap.L().Warn("Challenge marker not written",
			zap.String("from_hash", hash),
			zap.String("marker", value),
			zap.Error(err))
	}
}

func (s *Service) fail(ctx context.Context, result *Result, tx *models.ArbitrationTransaction, err error) (*Result, error) {
	result.State = StateFailed
	challengesTotal.WithLabelValues(string(StateFailed)).Inc()

	s.cfg.Alerter.Alert(ctx, alert.Alert{
		Title:    "Arbitration challenge failed",
		Severity: alert.SeverityCritical,
		Fields: map[string]string{
			"from_hash":     result.FromHash,
			"from_chain_id": tx.FromChainId,
			"challenge_tx":  result.TxHash,
		},
		Err: err,
	})

	return result, err
}

// Enqueue hands a transaction to the run loop
func (s *Service) Enqueue(ctx context.Context, tx models.ArbitrationTransaction) error {
	req := models.ChallengeRequest{Transaction: tx, ReceivedAt: s.cfg.Clock()}

	select {
	case s.requests <- req:
		return nil
	case <-s.stopChan:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the request worker and, when a candidate source is configured, the scan loop
func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Starting arbitration service",
		zap.Duration("scan_interval", s.cfg.ScanInterval),
		zap.Int("queue_size", s.cfg.QueueSize))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case req := <-s.requests:
				runCtx := models.WithRunContext(ctx, &models.RunContext{
					RunId:   uuid.New().String(),
					Trigger: "queue",
					Stage:   "challenge",
				})
				tx := req.Transaction
				if _, err := s.Challenge(runCtx, &tx); err != nil {
					zap.L().Error("Challenge attempt failed",
						zap.String("from_hash", tx.FromHash),
						zap.Error(err))
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if s.cfg.Source == nil || s.cfg.ScanInterval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.ScanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCtx := models.WithRunContext(ctx, &models.RunContext{
					RunId:   uuid.New().String(),
					Trigger: "tick",
					Stage:   "challenge-scan",
				})
				if _, err := s.ScanCandidates(runCtx); err != nil {
					zap.L().Error("Challenge candidate scan failed", zap.Error(err))
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loops and waits for any in-flight challenge
func (s *Service) Stop() {
	zap.L().Info("Stopping arbitration service")
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	zap.L().Info("Arbitration service stopped")
}

// ScanCandidates challenges every eligible unanswered transfer in the lookback window
func (s *Service) ScanCandidates(ctx context.Context) ([]*Result, error) {
	now := s.cfg.Clock()
	candidates, err := s.cfg.Source.FindChallengeCandidates(ctx, store.ChallengeCandidateFilter{
		From:  now.Add(-s.cfg.ScanLookback),
		To:    now,
		Limit: s.cfg.ScanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find challenge candidates: %w", err)
	}

	var results []*Result
	for _, c := range candidates {
		candidatesScannedTotal.Inc()

		tx, err := s.ArbitrationTransaction(c)
		if err != nil {
			zap.L().Warn("Skipping challenge candidate",
				zap.String("hash", c.Transfer.Hash),
				zap.Error(err))
			continue
		}

		result, err := s.Challenge(ctx, tx)
		if err != nil {
			zap.L().Error("Challenge attempt failed",
				zap.String("from_hash", tx.FromHash),
				zap.Error(err))
		}
		if result != nil && result.State != StateIneligible {
			results = append(results, result)
		}
	}

	return results, nil
}

// ArbitrationTransaction builds the challenge input for a scanned candidate
func (s *Service) ArbitrationTransaction(c store.ChallengeCandidate) (*models.ArbitrationTransaction, error) {
	t := c.Transfer

	token, err := s.cfg.Chains.TokenBySymbol(t.ChainId, t.Symbol)
	if err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(t.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer value %q: %w", t.Value, err)
	}

	tx := &models.ArbitrationTransaction{
		FromHash:      t.Hash,
		FromChainId:   t.ChainId,
		FromTimestamp: t.Timestamp,
		SourceToken:   t.Token,
		SourceDecimal: token.Decimals,
		FromAmount:    value.Shift(-token.Decimals).String(),
		SourceMaker:   t.Receiver,
		Status:        t.Status,
	}
	if c.Bridge != nil {
		tx.ToChainId = c.Bridge.TargetChain
		tx.ToHash = c.Bridge.TargetId
	}

	return tx, nil
}
