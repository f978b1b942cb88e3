package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeBridge struct {
	mu       sync.Mutex
	failLeft int
	calls    int
	applied  map[string]bool
	balances map[string]int64
	outcomes map[string][]Outcome
}

func newFakeBridge(failures int) *fakeBridge {
	return &fakeBridge{
		failLeft: failures,
		applied:  map[string]bool{},
		balances: map[string]int64{},
		outcomes: map[string][]Outcome{},
	}
}

func (b *fakeBridge) fail() error {
	b.calls++
	if b.failLeft > 0 {
		b.failLeft--
		return errors.New("bridge down")
	}
	return nil
}

func (b *fakeBridge) record(entryID, playerID string, o Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	key := entryID + "/" + string(o)
	if b.applied[key] {
		return nil
	}
	b.applied[key] = true
	b.outcomes[playerID] = append(b.outcomes[playerID], o)
	return nil
}

func (b *fakeBridge) RecordWin(_ context.Context, entryID, playerID string) error {
	return b.record(entryID, playerID, OutcomeWin)
}

func (b *fakeBridge) RecordLoss(_ context.Context, entryID, playerID string) error {
	return b.record(entryID, playerID, OutcomeLoss)
}

func (b *fakeBridge) RecordDraw(_ context.Context, entryID, playerID string) error {
	return b.record(entryID, playerID, OutcomeDraw)
}

func (b *fakeBridge) AdjustBalance(_ context.Context, entryID, playerID string, delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	key := entryID + "/adjust"
	if b.applied[key] {
		return nil
	}
	b.applied[key] = true
	b.balances[playerID] += delta
	return nil
}

func (b *fakeBridge) snapshot(playerID string) (int64, []Outcome, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[playerID], append([]Outcome(nil), b.outcomes[playerID]...), b.calls
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
	t.Fatalf("condition not met before deadline")
}

func TestApplyWinAdjustsAndRecords(t *testing.T) {
	b := newFakeBridge(0)
	err := Apply(context.Background(), b, Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeWin, Delta: 150})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	bal, outcomes, _ := b.snapshot("p1")
	if bal != 150 || len(outcomes) != 1 || outcomes[0] != OutcomeWin {
		t.Fatalf("unexpected bridge state bal=%d outcomes=%v", bal, outcomes)
	}
}

func TestApplyZeroDeltaSkipsBalance(t *testing.T) {
	b := newFakeBridge(0)
	if err := Apply(context.Background(), b, Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeDraw}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	_, outcomes, calls := b.snapshot("p1")
	if calls != 1 || len(outcomes) != 1 || outcomes[0] != OutcomeDraw {
		t.Fatalf("expected one draw call, calls=%d outcomes=%v", calls, outcomes)
	}
}

func TestApplyRejectsUnknownOutcome(t *testing.T) {
	b := newFakeBridge(0)
	if err := Apply(context.Background(), b, Report{EntryID: "e1", PlayerID: "p1", Outcome: "push"}); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

func TestDispatcherRetriesUntilApplied(t *testing.T) {
	b := newFakeBridge(2)
	d := NewDispatcher(b, DispatcherConfig{Workers: 1, RetryMax: 5, RetryBase: 2 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Submit(Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeLoss, Delta: -50})
	waitFor(t, func() bool {
		_, outcomes, _ := b.snapshot("p1")
		return len(outcomes) == 1
	})
	bal, _, _ := b.snapshot("p1")
	if bal != -50 {
		t.Fatalf("expected balance applied once, got %d", bal)
	}
}

func TestDispatcherDropsAfterRetryMax(t *testing.T) {
	b := newFakeBridge(1000)
	d := NewDispatcher(b, DispatcherConfig{Workers: 1, RetryMax: 2, RetryBase: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	before := metricSettlementDroppedTotal.Value()
	d.Submit(Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeWin, Delta: 10})
	waitFor(t, func() bool { return metricSettlementDroppedTotal.Value() == before+1 })
	_, _, calls := b.snapshot("p1")
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDispatcherDrainWaitsForRetries(t *testing.T) {
	b := newFakeBridge(1)
	d := NewDispatcher(b, DispatcherConfig{Workers: 1, RetryMax: 3, RetryBase: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Submit(Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeWin, Delta: 10})
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	if err := d.Drain(drainCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	bal, outcomes, _ := b.snapshot("p1")
	if bal != 10 || len(outcomes) != 1 {
		t.Fatalf("expected report applied before drain returned, got balance=%d outcomes=%v", bal, outcomes)
	}
}

func TestDispatcherDrainHonorsContext(t *testing.T) {
	b := newFakeBridge(1000)
	d := NewDispatcher(b, DispatcherConfig{Workers: 1, RetryMax: 10, RetryBase: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Submit(Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeLoss, Delta: -5})
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer drainCancel()
	if err := d.Drain(drainCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcherTracksPendingDeltas(t *testing.T) {
	b := newFakeBridge(1000)
	d := NewDispatcher(b, DispatcherConfig{Workers: 1, RetryMax: 1, RetryBase: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Submit(
		Report{EntryID: "e1", PlayerID: "p1", Outcome: OutcomeLoss, Delta: -60},
		Report{EntryID: "e1", PlayerID: "p2", Outcome: OutcomeWin, Delta: 60},
	)
	if got := d.Pending("p1"); got != -60 {
		t.Fatalf("expected pending -60, got %d", got)
	}
	if got := d.Pending("p2"); got != 60 {
		t.Fatalf("expected pending 60, got %d", got)
	}
	waitFor(t, func() bool { return d.Pending("p1") == 0 && d.Pending("p2") == 0 })
}
