package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bridge-reconcile-go/internal/models"

	"go.uber.org/zap"
)

// pairingWriter carries the writes that must share the settlement transaction.
type pairingWriter struct {
	q queryer
}

func scanMaker(row rowScanner) (*models.MakerTransaction, error) {
	var m models.MakerTransaction
	var outId sql.NullInt64
	var createdAt int64
	err := row.Scan(&m.Id, &m.TranscationId, &m.InId, &outId, &m.FromChain, &m.ToChain, &m.ToAmount,
		&m.ReplySender, &m.ReplyAccount, &createdAt)
	if err != nil {
		return nil, err
	}
	if outId.Valid {
		id := outId.Int64
		m.OutId = &id
	}
	m.CreatedAt = unixTime(createdAt)
	return &m, nil
}

// CreateOrUpdateMakerPairing upserts by inId. A nil OutId never clears a linked out leg.
func (w *pairingWriter) CreateOrUpdateMakerPairing(ctx context.Context, m *models.MakerTransaction) (int64, error) {
	var outId sql.NullInt64
	if m.OutId != nil {
		outId = sql.NullInt64{Int64: *m.OutId, Valid: true}
	}

	var id int64
	err := w.q.QueryRowContext(ctx, queryUpsertMakerPairing,
		m.TranscationId, m.InId, outId, m.FromChain, m.ToChain, m.ToAmount,
		strings.ToLower(m.ReplySender), strings.ToLower(m.ReplyAccount), time.Now().UTC().Unix()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert maker pairing for in_id %d: %w", m.InId, err)
	}
	return id, nil
}

// SettleLegs flips the given legacy rows to matched, skipping rows already matched.
// Returns the number of rows flipped; callers decide whether that is enough.
func (w *pairingWriter) SettleLegs(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := []any{models.LegacyStatusMatched, time.Now().UTC().Unix()}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(i+3)
	}
	query := querySettleLegsPrefix + strings.Join(placeholders, ", ") + ")"

	result, err := w.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to settle legs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	zap.L().Debug("Settled legacy legs",
		zap.Int64s("ids", ids),
		zap.Int64("rows_affected", rowsAffected))
	return rowsAffected, nil
}

func (s *LegacyService) FindMakerPairing(ctx context.Context, inId int64) (*models.MakerTransaction, error) {
	m, err := scanMaker(s.db.QueryRowContext(ctx, queryFindMakerPairing, inId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find maker pairing for in_id %d: %w", inId, err)
	}
	return m, nil
}

// FindUnpairedMakerTransactions returns pairings without an out leg created at or after since.
func (s *LegacyService) FindUnpairedMakerTransactions(ctx context.Context, since time.Time, limit int) ([]models.MakerTransaction, error) {
	rows, err := s.db.QueryContext(ctx, queryFindUnpairedMakerTransactions, since.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpaired maker transactions: %w", err)
	}
	defer closeRows(rows)

	var pairings []models.MakerTransaction
	for rows.Next() {
		m, err := scanMaker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maker transaction: %w", err)
		}
		pairings = append(pairings, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating maker transaction rows: %w", err)
	}
	return pairings, nil
}
