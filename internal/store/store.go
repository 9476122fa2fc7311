package store

import (
	"context"
	"errors"
	"time"

	"bridge-reconcile-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrPartialSettlement      = errors.New("settlement did not flip both legs")
	ErrNotFound               = errors.New("record not found")
)

// UnsyncedFilter selects source transfers awaiting legacy mirroring.
type UnsyncedFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ChallengeCandidateFilter selects bridge transfers still lacking a maker reply.
type ChallengeCandidateFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ChallengeCandidate is a source transfer joined with its bridge record, if any.
type ChallengeCandidate struct {
	Transfer models.Transfer
	Bridge   *models.BridgeTransaction
}

// SourceLedger is the v3 transfer feed. Finders return (nil, nil) on miss.
type SourceLedger interface {
	FindUnsynced(ctx context.Context, filter UnsyncedFilter) ([]models.Transfer, error)
	FindTransferByHash(ctx context.Context, hash string) (*models.Transfer, error)
	UpdateSyncStatus(ctx context.Context, hash string, status int) error
	FindBridgeTransactionBySource(ctx context.Context, sourceId string) (*models.BridgeTransaction, error)
	FindChallengeCandidates(ctx context.Context, filter ChallengeCandidateFilter) ([]ChallengeCandidate, error)
	Ping(ctx context.Context) error
}

// PairingWriter is the subset of legacy writes allowed inside a settlement transaction.
type PairingWriter interface {
	CreateOrUpdateMakerPairing(ctx context.Context, m *models.MakerTransaction) (int64, error)
	SettleLegs(ctx context.Context, ids ...int64) (int64, error)
}

// LegacyLedger is the v1 transaction and pairing store. Finders return (nil, nil) on miss.
type LegacyLedger interface {
	PairingWriter

	FindLegacyByHash(ctx context.Context, hash string) (*models.LegacyTransaction, error)
	FindLegacyById(ctx context.Context, id int64) (*models.LegacyTransaction, error)
	UpsertLegacy(ctx context.Context, tx *models.LegacyTransaction) (int64, error)
	FindMakerPairing(ctx context.Context, inId int64) (*models.MakerTransaction, error)
	FindUnpairedMakerTransactions(ctx context.Context, since time.Time, limit int) ([]models.MakerTransaction, error)

	// WithTransaction runs fn inside one database transaction; any error rolls back all writes.
	WithTransaction(ctx context.Context, fn func(w PairingWriter) error) error
	Ping(ctx context.Context) error
}

// MarkerStore persists dedup markers durably. Get reports found=false on miss.
type MarkerStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
