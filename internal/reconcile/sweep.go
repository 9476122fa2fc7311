package reconcile

import (
	"context"
	"fmt"
	"time"

	"bridge-reconcile-go/internal/models"

	"go.uber.org/zap"
)

// SweepUnmatched retries pairing for candidate rows created within lookback whose
// source transfer is already matched upstream. Returns how many were settled.
func (e *Engine) SweepUnmatched(ctx context.Context, lookback time.Duration) (int, error) {
	since := e.clock().UTC().Add(-lookback)

	pairings, err := e.legacy.FindUnpairedMakerTransactions(ctx, since, e.sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to select unpaired maker transactions: %w", err)
	}

	settled := 0
	for _, pairing := range pairings {
		if ctx.Err() != nil {
			break
		}

		inTx, err := e.legacy.FindLegacyById(ctx, pairing.InId)
		if err != nil {
			zap.L().Error("Failed to load in leg", runFields(ctx, zap.Int64("in_id", pairing.InId), zap.Error(err))...)
			continue
		}
		if inTx == nil {
			continue
		}

		transfer, err := e.source.FindTransferByHash(ctx, inTx.Hash)
		if err != nil {
			zap.L().Error("Failed to load source transfer", runFields(ctx, zap.String("hash", inTx.Hash), zap.Error(err))...)
			continue
		}
		if transfer == nil || transfer.OpStatus != models.OpStatusMatched {
			continue
		}

		result, err := e.PairByHash(ctx, inTx.Hash)
		if err != nil {
			zap.L().Error("Failed to pair during sweep", runFields(ctx, zap.String("hash", inTx.Hash), zap.Error(err))...)
			continue
		}
		if result.Settled && result.Skipped == "" {
			settled++
		}
	}

	sweepRowsTotal.Add(float64(len(pairings)))
	if len(pairings) > 0 {
		zap.L().Info("Unmatched sweep complete", runFields(ctx,
			zap.Duration("lookback", lookback),
			zap.Int("candidates", len(pairings)),
			zap.Int("settled", settled))...)
	}
	return settled, nil
}
