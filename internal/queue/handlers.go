package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bridge-reconcile-go/internal/chains"
	"bridge-reconcile-go/internal/dedup"
	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/reconcile"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

const (
	TopicTransactionReceipt     = "TransactionReceipt"
	TopicTransferWaitMatch      = "TransferWaitMatch"
	TopicMakerTransferWaitMatch = "makerTransferWaitMatch"
	TopicDataSynchronization    = "dataSynchronization"
)

var _ reconcile.Publisher = (*Publisher)(nil)

// permanentErrors fail the same way on every redelivery. Messages that hit one are
// acked and left to the sweeps.
var permanentErrors = []error{
	store.ErrPartialSettlement,
	store.ErrConcurrentModification,
	chains.ErrChainNotFound,
	chains.ErrTokenNotFound,
	reconcile.ErrUnknownVersion,
	reconcile.ErrInvalidAmount,
	reconcile.ErrTransferNotFound,
	reconcile.ErrBridgeTransactionNotFound,
	reconcile.ErrLegNotFound,
}

func isPermanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reconciler is the engine surface the handlers drive
type Reconciler interface {
	SyncTransfer(ctx context.Context, hash string) (*models.SyncResult, error)
	PairByHash(ctx context.Context, hash string) (*models.PairResult, error)
}

// Challenger turns a receipt into a queued arbitration request
type Challenger interface {
	ArbitrationTransaction(c store.ChallengeCandidate) (*models.ArbitrationTransaction, error)
	Enqueue(ctx context.Context, tx models.ArbitrationTransaction) error
}

type BridgeFinder interface {
	FindBridgeTransactionBySource(ctx context.Context, sourceId string) (*models.BridgeTransaction, error)
}

type TokenResolver interface {
	TokenBySymbol(chainId, symbol string) (*models.Token, error)
}

// Handlers binds queue topics to the reconciliation components
type Handlers struct {
	Reconciler Reconciler
	Ledgers    *dedup.Ledgers
	Locks      *dedup.LockRegistry
	Tokens     TokenResolver
	Bridges    BridgeFinder
	Challenger Challenger // optional; receipts are ignored without it
}

// Register wires every topic. Sync and receipt topics are swallow-and-ack since the
// batch sync and the candidate scan pick up anything dropped there.
func (h *Handlers) Register(c *Consumer) {
	c.Handle(TopicTransferWaitMatch, h.TransferWaitMatch)
	c.Handle(TopicMakerTransferWaitMatch, h.MakerTransferWaitMatch)
	c.HandleSwallow(TopicDataSynchronization, h.DataSynchronization)
	if h.Challenger != nil {
		c.HandleSwallow(TopicTransactionReceipt, h.TransactionReceipt)
	}
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

func decodeTransfer(body []byte) (*models.Transfer, error) {
	var t models.Transfer
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	if t.Hash == "" || t.ChainId == "" {
		return nil, fmt.Errorf("%w: transfer missing hash or chainId", ErrMalformedMessage)
	}
	return &t, nil
}

// TransferWaitMatch admits a source transfer into its chain's working index
func (h *Handlers) TransferWaitMatch(ctx context.Context, body []byte) error {
	t, err := decodeTransfer(body)
	if err != nil {
		return err
	}

	status, err := h.Ledgers.For(t.ChainId).AddWorkingRecord(ctx, *t)
	if err != nil {
		return fmt.Errorf("failed to add working record %s: %w", t.Hash, err)
	}

	zap.L().Debug("Working record",
		zap.String("chain_id", t.ChainId),
		zap.String("hash", t.Hash),
		zap.Stringer("status", status))
	return nil
}

// MakerTransferWaitMatch retires the source transfer's working record under the maker's
// wallet lock, then pairs the two legs.
func (h *Handlers) MakerTransferWaitMatch(ctx context.Context, body []byte) error {
	var bt models.BridgeTransaction
	if err := decode(body, &bt); err != nil {
		return err
	}
	if bt.SourceId == "" || bt.TargetId == "" {
		return fmt.Errorf("%w: bridge transaction missing sourceId or targetId", ErrMalformedMessage)
	}

	token := ""
	if t, err := h.Tokens.TokenBySymbol(bt.SourceChain, bt.SourceSymbol); err == nil {
		token = t.Address
	} else {
		zap.L().Warn("Source token unresolved, marking without working record",
			zap.String("source_id", bt.SourceId),
			zap.Error(err))
	}

	err := h.Locks.RunExclusive(ctx, bt.TargetChain, bt.TargetMaker, func() error {
		return h.Ledgers.For(bt.SourceChain).RemoveAndMark(ctx, token, bt.SourceId, strings.ToLower(bt.TargetId))
	})
	if err != nil {
		return fmt.Errorf("failed to retire working record %s: %w", bt.SourceId, err)
	}

	result, err := h.Reconciler.PairByHash(ctx, bt.SourceId)
	if err != nil {
		return fmt.Errorf("failed to pair %s: %w", bt.SourceId, err)
	}

	zap.L().Info("Maker reply handled",
		zap.String("source_id", bt.SourceId),
		zap.String("target_id", bt.TargetId),
		zap.Bool("settled", result.Settled),
		zap.String("skipped", result.Skipped))
	return nil
}

// DataSynchronization syncs one transfer ahead of the batch
func (h *Handlers) DataSynchronization(ctx context.Context, body []byte) error {
	t, err := decodeTransfer(body)
	if err != nil {
		return err
	}

	if _, err := h.Reconciler.SyncTransfer(ctx, t.Hash); err != nil {
		return fmt.Errorf("failed to sync %s: %w", t.Hash, err)
	}
	return nil
}

// TransactionReceipt queues a user send for arbitration when it has no recorded reply
func (h *Handlers) TransactionReceipt(ctx context.Context, body []byte) error {
	t, err := decodeTransfer(body)
	if err != nil {
		return err
	}
	if t.Version != models.VersionBridge {
		return nil
	}

	bt, err := h.Bridges.FindBridgeTransactionBySource(ctx, t.Hash)
	if err != nil {
		return fmt.Errorf("failed to find bridge transaction %s: %w", t.Hash, err)
	}
	if bt != nil && bt.TargetId != "" {
		return nil
	}

	tx, err := h.Challenger.ArbitrationTransaction(store.ChallengeCandidate{Transfer: *t, Bridge: bt})
	if err != nil {
		return fmt.Errorf("failed to build arbitration transaction %s: %w", t.Hash, err)
	}

	return h.Challenger.Enqueue(ctx, *tx)
}
