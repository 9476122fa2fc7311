package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

func scanLegacy(row rowScanner) (*models.LegacyTransaction, error) {
	var tx models.LegacyTransaction
	var ts int64
	err := row.Scan(&tx.Id, &tx.Hash, &tx.Nonce, &tx.From, &tx.To, &tx.Value, &tx.Symbol, &tx.Status,
		&tx.ChainId, &tx.Side, &tx.Memo, &tx.TransferId, &tx.ExpectValue, &tx.ReplyAccount, &tx.ReplySender,
		&tx.Source, &tx.Extra, &ts)
	if err != nil {
		return nil, err
	}
	tx.Timestamp = unixTime(ts)
	return &tx, nil
}

func (s *LegacyService) FindLegacyByHash(ctx context.Context, hash string) (*models.LegacyTransaction, error) {
	tx, err := scanLegacy(s.db.QueryRowContext(ctx, queryFindLegacyByHash, normalizeHash(hash)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find legacy transaction %s: %w", hash, err)
	}
	return tx, nil
}

func (s *LegacyService) FindLegacyById(ctx context.Context, id int64) (*models.LegacyTransaction, error) {
	tx, err := scanLegacy(s.db.QueryRowContext(ctx, queryFindLegacyById, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find legacy transaction %d: %w", id, err)
	}
	return tx, nil
}

// UpsertLegacy updates the row with tx.Id when set, otherwise inserts (or refreshes) by hash.
// Returns the row id.
func (s *LegacyService) UpsertLegacy(ctx context.Context, tx *models.LegacyTransaction) (int64, error) {
	now := time.Now().UTC().Unix()
	hash := normalizeHash(tx.Hash)

	zap.L().Debug("Upserting legacy transaction",
		zap.String("hash", hash),
		zap.Int64("id", tx.Id),
		zap.Int("status", tx.Status),
		zap.String("transfer_id", tx.TransferId))

	if tx.Id != 0 {
		result, err := s.db.ExecContext(ctx, queryUpdateLegacyById,
			tx.Nonce, strings.ToLower(tx.From), strings.ToLower(tx.To), tx.Value, tx.Symbol, tx.Status,
			tx.ChainId, tx.Side, tx.Memo, tx.TransferId, tx.ExpectValue, strings.ToLower(tx.ReplyAccount),
			strings.ToLower(tx.ReplySender), tx.Source, tx.Extra, tx.Timestamp.Unix(), now, tx.Id)
		if err != nil {
			return 0, fmt.Errorf("failed to update legacy transaction %d: %w", tx.Id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return 0, fmt.Errorf("legacy transaction %d: %w", tx.Id, store.ErrNotFound)
		}
		return tx.Id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, queryInsertLegacy,
		hash, tx.Nonce, strings.ToLower(tx.From), strings.ToLower(tx.To), tx.Value, tx.Symbol, tx.Status,
		tx.ChainId, tx.Side, tx.Memo, tx.TransferId, tx.ExpectValue, strings.ToLower(tx.ReplyAccount),
		strings.ToLower(tx.ReplySender), tx.Source, tx.Extra, tx.Timestamp.Unix(), now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert legacy transaction %s: %w", hash, err)
	}
	return id, nil
}
