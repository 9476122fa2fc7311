package dedup

import (
	"context"
	"strings"
	"sync"
)

type walletKey struct {
	chainId string
	address string
}

// LockRegistry hands out one lock per (chainId, address). Locks are created on first
// use and live for the life of the registry.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[walletKey]chan struct{}
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		locks: make(map[walletKey]chan struct{}),
	}
}

func (r *LockRegistry) lockFor(chainId, address string) chan struct{} {
	key := walletKey{
		chainId: strings.ToLower(strings.TrimSpace(chainId)),
		address: strings.ToLower(strings.TrimSpace(address)),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		r.locks[key] = lock
	}
	return lock
}

// RunExclusive runs fn while holding the wallet lock. Waiting is abandoned when ctx ends.
// The lock is released on every exit path, panics included.
func (r *LockRegistry) RunExclusive(ctx context.Context, chainId, address string, fn func() error) error {
	lock := r.lockFor(chainId, address)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock }()

	return fn()
}

// Size returns the number of wallet locks created so far.
func (r *LockRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
