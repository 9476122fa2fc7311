package dedup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"go.uber.org/zap"
)

// AddStatus reports how AddWorkingRecord treated a record
type AddStatus int

const (
	Added AddStatus = iota + 1
	AlreadyWorking
	AlreadyProcessed
)

func (s AddStatus) String() string {
	switch s {
	case Added:
		return "added"
	case AlreadyWorking:
		return "already_working"
	case AlreadyProcessed:
		return "already_processed"
	default:
		return "unknown"
	}
}

const defaultMarkerValue = "1"

type workingEntry struct {
	record  models.Transfer
	addedAt time.Time
}

// Ledger tracks in-flight transfers for one chain and the durable markers of those
// already handled. A record is either in the working index or marked, never both.
type Ledger struct {
	chainId string
	markers store.MarkerStore

	mu      sync.Mutex
	working map[string]map[string]workingEntry // token -> hash -> entry
}

func NewLedger(chainId string, markers store.MarkerStore) *Ledger {
	return &Ledger{
		chainId: chainId,
		markers: markers,
		working: make(map[string]map[string]workingEntry),
	}
}

func (l *Ledger) ChainId() string {
	return l.chainId
}

func (l *Ledger) markerKey(key string) string {
	return l.chainId + ":" + strings.ToLower(key)
}

func (l *Ledger) IsProcessed(ctx context.Context, key string) (bool, error) {
	_, found, err := l.markers.Get(ctx, l.markerKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to read marker %s: %w", key, err)
	}
	return found, nil
}

// Marker returns the stored marker value, usually the counterpart id.
func (l *Ledger) Marker(ctx context.Context, key string) (string, bool, error) {
	value, found, err := l.markers.Get(ctx, l.markerKey(key))
	if err != nil {
		return "", false, fmt.Errorf("failed to read marker %s: %w", key, err)
	}
	return value, found, nil
}

func (l *Ledger) MarkProcessed(ctx context.Context, key, value string) error {
	if value == "" {
		value = defaultMarkerValue
	}
	if err := l.markers.Put(ctx, l.markerKey(key), value); err != nil {
		return fmt.Errorf("failed to write marker %s: %w", key, err)
	}
	return nil
}

func (l *Ledger) Unmark(ctx context.Context, key string) error {
	if err := l.markers.Delete(ctx, l.markerKey(key)); err != nil {
		return fmt.Errorf("failed to delete marker %s: %w", key, err)
	}
	return nil
}

// AddWorkingRecord admits a transfer into the working index unless it is already
// working or already processed. Rejections are reported through the status, not an error.
func (l *Ledger) AddWorkingRecord(ctx context.Context, record models.Transfer) (AddStatus, error) {
	token := strings.ToLower(record.Token)
	hash := strings.ToLower(record.Hash)

	l.mu.Lock()
	defer l.mu.Unlock()

	processed, err := l.IsProcessed(ctx, hash)
	if err != nil {
		return 0, err
	}
	if processed {
		return AlreadyProcessed, nil
	}

	byHash, ok := l.working[token]
	if !ok {
		byHash = make(map[string]workingEntry)
		l.working[token] = byHash
	}
	if _, exists := byHash[hash]; exists {
		return AlreadyWorking, nil
	}
	byHash[hash] = workingEntry{record: record, addedAt: time.Now()}
	return Added, nil
}

// Working returns the in-flight record for (token, hash).
func (l *Ledger) Working(token, hash string) (models.Transfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.working[strings.ToLower(token)][strings.ToLower(hash)]
	return entry.record, ok
}

// RemoveAndMark moves (token, hash) from the working index to a durable marker holding
// counterpart (or "1"). If the marker cannot be persisted the entry is put back.
func (l *Ledger) RemoveAndMark(ctx context.Context, token, hash, counterpart string) error {
	token = strings.ToLower(token)
	hash = strings.ToLower(hash)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, existed := l.working[token][hash]
	if existed {
		delete(l.working[token], hash)
	}

	if err := l.MarkProcessed(ctx, hash, counterpart); err != nil {
		if existed {
			l.working[token][hash] = entry
		}
		zap.L().Warn("Marker persist failed, working record restored",
			zap.String("chain_id", l.chainId),
			zap.String("token", token),
			zap.String("hash", hash),
			zap.Error(err))
		return err
	}

	if existed && len(l.working[token]) == 0 {
		delete(l.working, token)
	}
	return nil
}

// Prune drops working entries added before olderThan and returns how many were dropped.
func (l *Ledger) Prune(olderThan time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for token, byHash := range l.working {
		for hash, entry := range byHash {
			if entry.addedAt.Before(olderThan) {
				delete(byHash, hash)
				removed++
			}
		}
		if len(byHash) == 0 {
			delete(l.working, token)
		}
	}
	return removed
}

// WorkingCount returns the number of in-flight records.
func (l *Ledger) WorkingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, byHash := range l.working {
		count += len(byHash)
	}
	return count
}

// Ledgers keeps one Ledger per chain over a shared marker store.
type Ledgers struct {
	markers store.MarkerStore

	mu      sync.Mutex
	byChain map[string]*Ledger
}

func NewLedgers(markers store.MarkerStore) *Ledgers {
	return &Ledgers{
		markers: markers,
		byChain: make(map[string]*Ledger),
	}
}

// For returns the ledger of chainId, creating it on first use.
func (ls *Ledgers) For(chainId string) *Ledger {
	chainId = strings.ToLower(strings.TrimSpace(chainId))

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ledger, ok := ls.byChain[chainId]
	if !ok {
		ledger = NewLedger(chainId, ls.markers)
		ls.byChain[chainId] = ledger
	}
	return ledger
}

// Prune applies Ledger.Prune to every chain.
func (ls *Ledgers) Prune(olderThan time.Time) int {
	ls.mu.Lock()
	ledgers := make([]*Ledger, 0, len(ls.byChain))
	for _, ledger := range ls.byChain {
		ledgers = append(ledgers, ledger)
	}
	ls.mu.Unlock()

	removed := 0
	for _, ledger := range ledgers {
		removed += ledger.Prune(olderThan)
	}
	return removed
}
