package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	legacySourceSync   = "v3"
	legacySourceRouter = "router"
)

type routingExtra struct {
	Routing string `json:"routing"`
	Router  string `json:"router"`
}

// SyncBatch mirrors one window of undecided transfers. Overlapping calls return
// immediately with Skipped set. A failing record never stops the batch.
func (e *Engine) SyncBatch(ctx context.Context) (*models.BatchResult, error) {
	if !e.syncing.CompareAndSwap(false, true) {
		zap.L().Debug("Sync batch already running, skipping tick")
		return &models.BatchResult{Skipped: true}, nil
	}
	defer e.syncing.Store(false)

	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	rc := models.GetRunContext(ctx)
	if rc == nil {
		rc = &models.RunContext{RunId: uuid.New().String(), Trigger: "tick", Stage: "sync"}
		ctx = models.WithRunContext(ctx, rc)
	}
	result := &models.BatchResult{RunId: rc.RunId}

	now := e.clock().UTC()
	transfers, err := e.source.FindUnsynced(ctx, store.UnsyncedFilter{
		From:  now.Add(-e.maxAge),
		To:    now.Add(-e.minAge),
		Limit: e.batchSize,
	})
	if err != nil {
		return result, fmt.Errorf("failed to select unsynced transfers: %w", err)
	}
	result.Selected = len(transfers)

	for i := range transfers {
		if ctx.Err() != nil {
			break
		}
		if _, err := e.syncOne(ctx, &transfers[i]); err != nil {
			result.Failed++
			syncFailedTotal.Inc()
			zap.L().Error("Failed to sync transfer", runFields(ctx,
				zap.String("hash", transfers[i].Hash),
				zap.String("chain_id", transfers[i].ChainId),
				zap.String("version", transfers[i].Version),
				zap.Error(err))...)
			continue
		}
		result.Synced++
		syncedTotal.Inc()
	}

	if result.Selected > 0 {
		zap.L().Info("Sync batch complete", runFields(ctx,
			zap.Int("selected", result.Selected),
			zap.Int("synced", result.Synced),
			zap.Int("failed", result.Failed))...)
	}
	return result, nil
}

// SyncTransfer mirrors a single transfer by hash regardless of its age.
func (e *Engine) SyncTransfer(ctx context.Context, hash string) (*models.SyncResult, error) {
	transfer, err := e.source.FindTransferByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, hash)
	}
	return e.syncOne(ctx, transfer)
}

func (e *Engine) syncOne(ctx context.Context, transfer *models.Transfer) (*models.SyncResult, error) {
	chain, err := e.chains.ChainInfo(transfer.ChainId)
	if err != nil {
		return nil, err
	}

	existing, err := e.legacy.FindLegacyByHash(ctx, transfer.Hash)
	if err != nil {
		return nil, err
	}

	row, bridge, err := e.deriveLegacy(ctx, transfer, chain)
	if err != nil {
		return nil, err
	}

	row.Status = models.LegacyStatusPending
	if models.IsAnomalous(transfer.OpStatus) {
		row.Status = models.LegacyStatusFailed
	}
	if existing != nil {
		row.Id = existing.Id
		if existing.Status >= models.LegacyStatusSettled {
			row.Status = models.LegacyStatusMatched
		}
	}

	id, err := e.legacy.UpsertLegacy(ctx, row)
	if err != nil {
		return nil, err
	}

	if bridge != nil {
		if err := e.upsertCandidate(ctx, id, row, bridge, chain); err != nil {
			return nil, err
		}
	}

	if err := e.source.UpdateSyncStatus(ctx, transfer.Hash, models.SyncStatusDone); err != nil {
		return nil, err
	}

	zap.L().Debug("Transfer synced", runFields(ctx,
		zap.String("hash", transfer.Hash),
		zap.Int64("legacy_id", id),
		zap.Int("status", row.Status),
		zap.String("transfer_id", row.TransferId))...)

	return &models.SyncResult{
		Hash:       row.Hash,
		LegacyId:   id,
		Status:     row.Status,
		TransferId: row.TransferId,
	}, nil
}

// upsertCandidate records the source leg's pairing row with no out leg so the
// sweeps can settle it once the reply lands. An already linked out leg is kept.
func (e *Engine) upsertCandidate(ctx context.Context, inId int64, row *models.LegacyTransaction, bridge *models.BridgeTransaction, chain *models.ChainInfo) error {
	_, err := e.legacy.CreateOrUpdateMakerPairing(ctx, &models.MakerTransaction{
		TranscationId: row.TransferId,
		InId:          inId,
		FromChain:     chain.InternalId,
		ToChain:       row.Memo,
		ToAmount:      bridge.TargetAmount,
		ReplySender:   bridge.TargetMaker,
		ReplyAccount:  bridge.TargetAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to record candidate pairing for %s: %w", row.Hash, err)
	}
	return nil
}

// deriveLegacy builds the legacy row for transfer. For a bridge leg it also returns
// the bridge record the row was derived from.
func (e *Engine) deriveLegacy(ctx context.Context, transfer *models.Transfer, chain *models.ChainInfo) (*models.LegacyTransaction, *models.BridgeTransaction, error) {
	row := &models.LegacyTransaction{
		Hash:      transfer.Hash,
		Nonce:     transfer.Nonce,
		From:      transfer.Sender,
		To:        transfer.Receiver,
		Value:     transfer.Value,
		Symbol:    transfer.Symbol,
		ChainId:   chain.InternalId,
		Source:    legacySourceSync,
		Timestamp: transfer.Timestamp,
	}

	var bridge *models.BridgeTransaction
	switch transfer.Version {
	case models.VersionBridge:
		var err error
		bridge, err = e.source.FindBridgeTransactionBySource(ctx, transfer.Hash)
		if err != nil {
			return nil, nil, err
		}
		if bridge == nil {
			return nil, nil, fmt.Errorf("%w: source %s", ErrBridgeTransactionNotFound, transfer.Hash)
		}

		targetChain, err := e.chains.ChainInfo(bridge.TargetChain)
		if err != nil {
			return nil, nil, err
		}
		token, err := e.chains.TokenBySymbol(bridge.TargetChain, bridge.TargetSymbol)
		if err != nil {
			return nil, nil, err
		}
		expectValue, err := ExpectValue(bridge.TargetAmount, token.Decimals)
		if err != nil {
			return nil, nil, err
		}

		row.Side = models.SideSource
		row.Memo = targetChain.InternalId
		row.ExpectValue = expectValue
		row.ReplySender = bridge.TargetMaker
		row.ReplyAccount = bridge.TargetAddress
		row.TransferId = TransferId(row.Memo, row.ReplySender, row.ReplyAccount, transfer.Nonce, bridge.TargetSymbol, expectValue)

		if chain.IsRouter(transfer.Receiver) {
			extra, err := json.Marshal(routingExtra{Routing: "swap", Router: transfer.Receiver})
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode routing metadata: %w", err)
			}
			row.Source = legacySourceRouter
			row.Extra = string(extra)
		}

	case models.VersionReply:
		row.Side = models.SideTarget
		row.Memo = DecodeMemo(transfer.Calldata)
		row.ReplySender = transfer.Sender
		row.ReplyAccount = transfer.Receiver
		row.TransferId = TransferId(chain.InternalId, transfer.Sender, transfer.Receiver, row.Memo, transfer.Symbol, transfer.Value)

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownVersion, transfer.Version)
	}

	return row, bridge, nil
}
