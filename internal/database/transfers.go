package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var t models.Transfer
	var ts int64
	err := row.Scan(&t.Id, &t.ChainId, &t.Hash, &t.Sender, &t.Receiver, &t.Value, &t.Token, &t.Symbol,
		&ts, &t.Status, &t.OpStatus, &t.Nonce, &t.Version, &t.SyncStatus, &t.Calldata)
	if err != nil {
		return nil, err
	}
	t.Timestamp = unixTime(ts)
	return &t, nil
}

func scanBridge(row rowScanner) (*models.BridgeTransaction, error) {
	var b models.BridgeTransaction
	var responseMaker string
	var sourceTime int64
	err := row.Scan(&b.Id, &b.SourceId, &b.TargetId, &b.SourceChain, &b.TargetChain, &b.SourceAmount,
		&b.TargetAmount, &b.SourceMaker, &b.TargetMaker, &b.SourceSymbol, &b.TargetSymbol, &b.TargetToken,
		&b.TargetAddress, &b.Status, &b.TargetFee, &responseMaker, &sourceTime)
	if err != nil {
		return nil, err
	}
	if responseMaker != "" {
		b.ResponseMaker = strings.Split(responseMaker, ",")
	}
	b.SourceTime = unixTime(sourceTime)
	return &b, nil
}

// FindUnsynced returns transfers with a decided opStatus that have not been mirrored yet,
// oldest id first.
func (s *SourceService) FindUnsynced(ctx context.Context, filter store.UnsyncedFilter) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, queryFindUnsyncedTransfers,
		models.OpStatusPending, models.SyncStatusDone, filter.From.Unix(), filter.To.Unix(), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsynced transfers: %w", err)
	}
	defer closeRows(rows)

	var transfers []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transfer row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}

	return transfers, nil
}

func (s *SourceService) FindTransferByHash(ctx context.Context, hash string) (*models.Transfer, error) {
	t, err := scanTransfer(s.db.QueryRowContext(ctx, queryFindTransferByHash, normalizeHash(hash)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer %s: %w", hash, err)
	}
	return t, nil
}

func (s *SourceService) UpdateSyncStatus(ctx context.Context, hash string, status int) error {
	result, err := s.db.ExecContext(ctx, queryUpdateSyncStatus, status, normalizeHash(hash))
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transfer %s: %w", hash, store.ErrNotFound)
	}
	return nil
}

func (s *SourceService) FindBridgeTransactionBySource(ctx context.Context, sourceId string) (*models.BridgeTransaction, error) {
	b, err := scanBridge(s.db.QueryRowContext(ctx, queryFindBridgeBySource, normalizeHash(sourceId)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bridge transaction %s: %w", sourceId, err)
	}
	return b, nil
}

// FindChallengeCandidates returns valid bridge transfers in the window that no maker has answered.
func (s *SourceService) FindChallengeCandidates(ctx context.Context, filter store.ChallengeCandidateFilter) ([]store.ChallengeCandidate, error) {
	rows, err := s.db.QueryContext(ctx, queryFindChallengeCandidates,
		models.VersionBridge, models.OpStatusValid, filter.From.Unix(), filter.To.Unix(), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge candidates: %w", err)
	}

	var transfers []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			closeRows(rows)
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	iterErr := rows.Err()
	closeRows(rows)
	if iterErr != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", iterErr)
	}

	candidates := make([]store.ChallengeCandidate, 0, len(transfers))
	for _, t := range transfers {
		bridge, err := s.FindBridgeTransactionBySource(ctx, t.Hash)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, store.ChallengeCandidate{Transfer: t, Bridge: bridge})
	}
	return candidates, nil
}

// RecordTransfer writes an ingested transfer. Ingestion normally happens upstream;
// this exists for backfills and fixtures.
func (s *SourceService) RecordTransfer(ctx context.Context, t *models.Transfer) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, queryInsertTransfer,
		t.ChainId, normalizeHash(t.Hash), strings.ToLower(t.Sender), strings.ToLower(t.Receiver), t.Value,
		strings.ToLower(t.Token), t.Symbol, t.Timestamp.Unix(), t.Status, t.OpStatus, t.Nonce, t.Version,
		t.SyncStatus, t.Calldata).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transfer %s: %w", t.Hash, err)
	}
	return id, nil
}

// RecordBridgeTransaction writes or refreshes an ingested bridge record keyed by source id.
func (s *SourceService) RecordBridgeTransaction(ctx context.Context, b *models.BridgeTransaction) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, queryInsertBridgeTransaction,
		normalizeHash(b.SourceId), normalizeHash(b.TargetId), b.SourceChain, b.TargetChain, b.SourceAmount,
		b.TargetAmount, strings.ToLower(b.SourceMaker), strings.ToLower(b.TargetMaker), b.SourceSymbol,
		b.TargetSymbol, strings.ToLower(b.TargetToken), strings.ToLower(b.TargetAddress), b.Status,
		b.TargetFee, strings.Join(b.ResponseMaker, ","), b.SourceTime.Unix()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bridge transaction %s: %w", b.SourceId, err)
	}
	return id, nil
}
