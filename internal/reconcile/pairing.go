package reconcile

import (
	"context"
	"errors"
	"fmt"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

// PairByHash links the legacy legs of a bridge transfer and settles them together.
// Missing legs are synced first. Both legacy rows flip to matched in the same
// transaction as the pairing write, or nothing is written.
func (e *Engine) PairByHash(ctx context.Context, hash string) (*models.PairResult, error) {
	result := &models.PairResult{Hash: hash}

	bridge, err := e.source.FindBridgeTransactionBySource(ctx, hash)
	if err != nil {
		return nil, err
	}
	if bridge == nil {
		result.Skipped = "no bridge transaction"
		return result, nil
	}

	inTx, err := e.ensureLeg(ctx, bridge.SourceId)
	if err != nil {
		return nil, err
	}
	result.InId = inTx.Id

	existing, err := e.legacy.FindMakerPairing(ctx, inTx.Id)
	if err != nil {
		return nil, err
	}
	if existing.Paired() {
		result.OutId = *existing.OutId
		result.Settled = true
		result.Skipped = "already paired"
		return result, nil
	}

	sourceChain, err := e.chains.ChainInfo(bridge.SourceChain)
	if err != nil {
		return nil, err
	}
	targetChain, err := e.chains.ChainInfo(bridge.TargetChain)
	if err != nil {
		return nil, err
	}

	pairing := &models.MakerTransaction{
		TranscationId: inTx.TransferId,
		InId:          inTx.Id,
		FromChain:     sourceChain.InternalId,
		ToChain:       targetChain.InternalId,
		ToAmount:      bridge.TargetAmount,
		ReplySender:   bridge.TargetMaker,
		ReplyAccount:  bridge.TargetAddress,
	}

	if bridge.TargetId == "" {
		if _, err := e.legacy.CreateOrUpdateMakerPairing(ctx, pairing); err != nil {
			return nil, err
		}
		result.Skipped = "awaiting target leg"
		return result, nil
	}

	outTx, err := e.ensureLeg(ctx, bridge.TargetId)
	if err != nil {
		return nil, err
	}
	pairing.OutId = &outTx.Id
	result.OutId = outTx.Id

	err = e.legacy.WithTransaction(ctx, func(w store.PairingWriter) error {
		if _, err := w.CreateOrUpdateMakerPairing(ctx, pairing); err != nil {
			return err
		}
		affected, err := w.SettleLegs(ctx, inTx.Id, outTx.Id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: legs %d and %d already settled", store.ErrConcurrentModification, inTx.Id, outTx.Id)
		}
		if affected != 2 {
			return fmt.Errorf("%w: legs %d and %d flipped %d rows", store.ErrPartialSettlement, inTx.Id, outTx.Id, affected)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrPartialSettlement) || errors.Is(err, store.ErrConcurrentModification) {
			pairAbortedTotal.Inc()
		}
		return nil, err
	}

	pairSettledTotal.Inc()
	result.Settled = true

	zap.L().Info("Bridge transfer settled", runFields(ctx,
		zap.String("source_hash", bridge.SourceId),
		zap.String("target_hash", bridge.TargetId),
		zap.Int64("in_id", inTx.Id),
		zap.Int64("out_id", outTx.Id))...)

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, TopicPointsSystemTransaction, bridge); err != nil {
			zap.L().Warn("Failed to publish settlement", runFields(ctx,
				zap.String("source_hash", bridge.SourceId),
				zap.Error(err))...)
		}
	}

	return result, nil
}

// ensureLeg returns the legacy row for hash, syncing it once if it is missing.
func (e *Engine) ensureLeg(ctx context.Context, hash string) (*models.LegacyTransaction, error) {
	leg, err := e.legacy.FindLegacyByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if leg != nil {
		return leg, nil
	}

	if _, err := e.SyncTransfer(ctx, hash); err != nil {
		if errors.Is(err, ErrTransferNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLegNotFound, hash)
		}
		return nil, fmt.Errorf("failed to sync leg %s: %w", hash, err)
	}

	leg, err = e.legacy.FindLegacyByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if leg == nil {
		return nil, fmt.Errorf("%w: %s", ErrLegNotFound, hash)
	}
	return leg, nil
}
