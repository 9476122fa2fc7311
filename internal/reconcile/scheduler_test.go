package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"bridge-reconcile-go/internal/dedup"
	"bridge-reconcile-go/internal/models"
)

type fakeRunner struct {
	mu        sync.Mutex
	syncs     int
	lookbacks []time.Duration
	stages    []string

	syncStarted chan struct{}
	release     chan struct{}
}

func (r *fakeRunner) SyncBatch(ctx context.Context) (*models.BatchResult, error) {
	r.mu.Lock()
	r.syncs++
	if rc := models.GetRunContext(ctx); rc != nil {
		r.stages = append(r.stages, rc.Stage)
	}
	started, release := r.syncStarted, r.release
	r.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}
	return &models.BatchResult{}, nil
}

func (r *fakeRunner) SweepUnmatched(ctx context.Context, lookback time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookbacks = append(r.lookbacks, lookback)
	if rc := models.GetRunContext(ctx); rc != nil {
		r.stages = append(r.stages, rc.Stage)
	}
	return 0, nil
}

func (r *fakeRunner) snapshot() (int, []time.Duration, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncs, append([]time.Duration(nil), r.lookbacks...), append([]string(nil), r.stages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestScheduler_SyncRunsImmediately(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(SchedulerConfig{Engine: runner, SyncInterval: time.Hour})

	s.Start(context.Background())
	waitFor(t, func() bool {
		syncs, _, _ := runner.snapshot()
		return syncs == 1
	})
	s.Stop()

	syncs, lookbacks, stages := runner.snapshot()
	if syncs != 1 {
		t.Errorf("Expected 1 sync before the first tick, got %d", syncs)
	}
	if len(lookbacks) != 0 {
		t.Errorf("Expected sweeps to wait for their first tick, got %v", lookbacks)
	}
	if len(stages) != 1 || stages[0] != "sync" {
		t.Errorf("Expected run context stage sync, got %v", stages)
	}
}

func TestScheduler_SweepLookbacks(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(SchedulerConfig{
		Engine:             runner,
		ShortSweepInterval: 10 * time.Millisecond,
		ShortSweepLookback: 20 * time.Minute,
		LongSweepInterval:  15 * time.Millisecond,
		LongSweepLookback:  24 * time.Hour,
	})

	s.Start(context.Background())
	waitFor(t, func() bool {
		_, lookbacks, _ := runner.snapshot()
		short, long := 0, 0
		for _, l := range lookbacks {
			switch l {
			case 20 * time.Minute:
				short++
			case 24 * time.Hour:
				long++
			}
		}
		return short >= 2 && long >= 1
	})
	s.Stop()

	syncs, lookbacks, stages := runner.snapshot()
	if syncs != 0 {
		t.Errorf("Expected disabled sync loop, got %d syncs", syncs)
	}
	for _, l := range lookbacks {
		if l != 20*time.Minute && l != 24*time.Hour {
			t.Errorf("Expected only configured lookbacks, got %s", l)
		}
	}
	for _, stage := range stages {
		if stage != "sweep-short" && stage != "sweep-long" {
			t.Errorf("Expected sweep stages, got %s", stage)
		}
	}
}

func TestScheduler_DisabledIntervalsStartNothing(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(SchedulerConfig{
		Engine:          runner,
		Ledgers:         dedup.NewLedgers(dedup.NewMemoryMarkerStore()),
		CleanupInterval: 0,
	})

	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Stop to return with no loops running")
	}

	syncs, lookbacks, _ := runner.snapshot()
	if syncs != 0 || len(lookbacks) != 0 {
		t.Errorf("Expected no runs, got %d syncs and %d sweeps", syncs, len(lookbacks))
	}
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	runner := &fakeRunner{
		syncStarted: make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	s := NewScheduler(SchedulerConfig{Engine: runner, SyncInterval: time.Hour})
	s.Start(context.Background())

	select {
	case <-runner.syncStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected sync to start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Expected Stop to wait for the running sync")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Stop to return once the sync finished")
	}
}

func TestScheduler_CleanupPrunesStaleRecords(t *testing.T) {
	ledgers := dedup.NewLedgers(dedup.NewMemoryMarkerStore())
	if _, err := ledgers.For("1").AddWorkingRecord(context.Background(), models.Transfer{
		ChainId: "1", Hash: "0xabc", Token: "0x0000000000000000000000000000000000000000",
	}); err != nil {
		t.Fatalf("AddWorkingRecord failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	s := NewScheduler(SchedulerConfig{
		Engine:           &fakeRunner{},
		Ledgers:          ledgers,
		CleanupInterval:  10 * time.Millisecond,
		WorkingRecordTTL: time.Millisecond,
	})
	s.Start(context.Background())
	waitFor(t, func() bool { return ledgers.For("1").WorkingCount() == 0 })
	s.Stop()
}
