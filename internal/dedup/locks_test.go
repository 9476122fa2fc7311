package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunExclusive_SameKeyNeverOverlaps(t *testing.T) {
	registry := NewLockRegistry()
	ctx := context.Background()

	var inside int32
	var overlaps int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		// mixed case must map to the same lock
		address := "0xMaker"
		if i%2 == 0 {
			address = "0xmaker"
		}
		go func(address string) {
			defer wg.Done()
			err := registry.RunExclusive(ctx, "1", address, func() error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("RunExclusive failed: %v", err)
			}
		}(address)
	}
	wg.Wait()

	if overlaps != 0 {
		t.Errorf("Expected no overlapping critical sections, got %d", overlaps)
	}
	if registry.Size() != 1 {
		t.Errorf("Expected 1 lock, got %d", registry.Size())
	}
}

func TestRunExclusive_DifferentKeysIndependent(t *testing.T) {
	registry := NewLockRegistry()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = registry.RunExclusive(ctx, "1", "0xa", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = registry.RunExclusive(ctx, "1", "0xb", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Expected a different wallet key not to block")
	}
	close(release)
}

func TestRunExclusive_ReleasesOnErrorAndPanic(t *testing.T) {
	registry := NewLockRegistry()
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := registry.RunExclusive(ctx, "1", "0xa", func() error { return errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("Expected fn error to propagate, got %v", err)
	}

	func() {
		defer func() { _ = recover() }()
		_ = registry.RunExclusive(ctx, "1", "0xa", func() error { panic("boom") })
	}()

	acquired := make(chan struct{})
	go func() {
		_ = registry.RunExclusive(ctx, "1", "0xa", func() error { return nil })
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("Expected lock to be released after error and panic")
	}
}

func TestRunExclusive_WaitHonoursContext(t *testing.T) {
	registry := NewLockRegistry()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = registry.RunExclusive(context.Background(), "1", "0xa", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := registry.RunExclusive(ctx, "1", "0xA", func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if called {
		t.Errorf("Expected fn not to run without the lock")
	}
}
