package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/ledger"
)

type recordingSettler struct {
	mu      sync.Mutex
	reports []ledger.Report
}

func (s *recordingSettler) Submit(reports ...ledger.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reports...)
}

func (s *recordingSettler) Reports() []ledger.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Report(nil), s.reports...)
}

type panickingEvaluator struct{}

func (panickingEvaluator) Rank([7]game.Card) (game.HandStrength, error) {
	panic("evaluator exploded")
}

func orderedShuffle(context.Context) (*game.Deck, error) {
	return game.NewDeckFromCards(game.OrderedCards()), nil
}

func newTestTable(t *testing.T, opts Options) *Table {
	t.Helper()
	if opts.Game.TableID == "" {
		opts.Game = game.Config{TableID: "t1", SeatLimit: 2, SmallBlind: 25, BigBlind: 50}
	}
	if opts.Shuffle == nil {
		opts.Shuffle = orderedShuffle
	}
	if opts.TurnTimeout == 0 {
		opts.TurnTimeout = time.Minute
	}
	tbl := New(opts)
	tbl.Start(context.Background())
	t.Cleanup(tbl.Close)
	return tbl
}

func eventually(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func phaseIs(t *testing.T, tbl *Table, phase game.Phase) func() bool {
	return func() bool {
		s, err := tbl.Summary(context.Background())
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		return s.Phase == phase
	}
}

func join(t *testing.T, tbl *Table, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := tbl.Join(context.Background(), id, id, 1000); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
}

func actCurrent(t *testing.T, tbl *Table, action game.ActionType) {
	t.Helper()
	ctx := context.Background()
	st, err := tbl.State(ctx, "")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.TurnIndex < 0 {
		t.Fatalf("nobody to act in phase %s", st.Phase)
	}
	id := st.SeatedPlayers[st.TurnIndex].PlayerID
	if err := tbl.Act(ctx, id, action, 0); err != nil {
		t.Fatalf("%s %s: %v", id, action, err)
	}
}

func TestTableDealsOnceTwoPlayersSit(t *testing.T) {
	tbl := newTestTable(t, Options{})
	join(t, tbl, "p1")
	s, err := tbl.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Phase != game.PhaseAwaitingPlayers || s.Seated != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}

	join(t, tbl, "p2", "p3")
	eventually(t, "preflop", phaseIs(t, tbl, game.PhasePreflop))

	st, err := tbl.State(context.Background(), "p1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.MySeat != 0 || len(st.SeatedPlayers[0].HoleCards) != 2 {
		t.Fatalf("expected own cards at seat 0, got %+v", st.SeatedPlayers[0])
	}
	if st.PotAmount != 0 || st.CurrentBet != 50 || st.TurnIndex != 1 {
		t.Fatalf("unexpected betting state pot=%d bet=%d turn=%d", st.PotAmount, st.CurrentBet, st.TurnIndex)
	}
	if len(st.WaitingPlayers) != 1 {
		t.Fatalf("expected p3 waiting, got %+v", st.WaitingPlayers)
	}
}

func TestActionsRejectedWhileDealing(t *testing.T) {
	release := make(chan struct{})
	tbl := newTestTable(t, Options{Shuffle: func(ctx context.Context) (*game.Deck, error) {
		<-release
		return orderedShuffle(ctx)
	}})
	join(t, tbl, "p1", "p2")
	eventually(t, "dealing", phaseIs(t, tbl, game.PhaseDealing))

	if err := tbl.Act(context.Background(), "p2", game.ActionCall, 0); !errors.Is(err, game.ErrDealingInProgress) {
		t.Fatalf("expected dealing guard, got %v", err)
	}
	close(release)
	eventually(t, "preflop", phaseIs(t, tbl, game.PhasePreflop))
	if err := tbl.Act(context.Background(), "p2", game.ActionCall, 0); err != nil {
		t.Fatalf("call after deal: %v", err)
	}
}

func TestTurnTimeoutRemovesIdlePlayer(t *testing.T) {
	settler := &recordingSettler{}
	tbl := newTestTable(t, Options{TurnTimeout: 20 * time.Millisecond, RevealDelay: time.Millisecond, Settler: settler})
	join(t, tbl, "p1", "p2")

	eventually(t, "settlement reports", func() bool { return len(settler.Reports()) == 2 })
	reports := settler.Reports()
	if reports[0].PlayerID != "p2" || reports[0].Outcome != ledger.OutcomeLoss || reports[0].Delta != -25 {
		t.Fatalf("unexpected timeout report %+v", reports[0])
	}
	if reports[1].PlayerID != "p1" || reports[1].Outcome != ledger.OutcomeWin || reports[1].Delta != 25 {
		t.Fatalf("unexpected winner report %+v", reports[1])
	}
	s, err := tbl.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Seated != 1 || s.Phase != game.PhaseAwaitingPlayers {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCheckDownSettlesAfterRevealDelay(t *testing.T) {
	settler := &recordingSettler{}
	tbl := newTestTable(t, Options{RevealDelay: 10 * time.Millisecond, Settler: settler})
	join(t, tbl, "p1", "p2")
	eventually(t, "preflop", phaseIs(t, tbl, game.PhasePreflop))

	actCurrent(t, tbl, game.ActionCall)
	actCurrent(t, tbl, game.ActionCheck)
	for street := 0; street < 3; street++ {
		actCurrent(t, tbl, game.ActionCheck)
		actCurrent(t, tbl, game.ActionCheck)
	}
	st, err := tbl.State(context.Background(), "")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Phase != string(game.PhaseShowdownPending) {
		t.Fatalf("expected showdown pending, got %s", st.Phase)
	}
	for _, s := range st.SeatedPlayers {
		if len(s.HoleCards) != 2 {
			t.Fatalf("expected %s cards revealed", s.PlayerID)
		}
	}

	eventually(t, "settlement", func() bool { return len(settler.Reports()) == 2 })
	for _, r := range settler.Reports() {
		if r.Outcome != ledger.OutcomeDraw || r.Delta != 0 {
			t.Fatalf("expected split board, got %+v", r)
		}
	}
	eventually(t, "next hand", phaseIs(t, tbl, game.PhasePreflop))
}

func TestWatcherReceivesSnapshots(t *testing.T) {
	tbl := newTestTable(t, Options{})
	w, err := tbl.Watch(context.Background(), "p1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	first := <-w.C
	if first.Phase != string(game.PhaseAwaitingPlayers) {
		t.Fatalf("expected initial snapshot, got %s", first.Phase)
	}
	join(t, tbl, "p1", "p2")
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-w.C:
			if v.Phase == string(game.PhasePreflop) {
				if v.MySeat != 0 || len(v.SeatedPlayers[0].HoleCards) != 2 || v.SeatedPlayers[1].HoleCards != nil {
					t.Fatalf("snapshot not personalised: %+v", v.SeatedPlayers)
				}
				return
			}
		case <-deadline:
			t.Fatal("no preflop snapshot")
		}
	}
}

func TestPanicIsContainedToTable(t *testing.T) {
	before := metricTablePanicsTotal.Value()
	tbl := newTestTable(t, Options{Evaluator: panickingEvaluator{}})
	join(t, tbl, "p1", "p2")
	eventually(t, "preflop", phaseIs(t, tbl, game.PhasePreflop))

	actCurrent(t, tbl, game.ActionCall)
	actCurrent(t, tbl, game.ActionCheck)
	for street := 0; street < 3; street++ {
		actCurrent(t, tbl, game.ActionCheck)
		actCurrent(t, tbl, game.ActionCheck)
	}
	eventually(t, "panic recorded", func() bool { return metricTablePanicsTotal.Value() > before })

	if _, err := tbl.State(context.Background(), ""); err != nil {
		t.Fatalf("table stopped answering after panic: %v", err)
	}
}

func TestClosedTableRejectsRequests(t *testing.T) {
	tbl := newTestTable(t, Options{})
	tbl.Close()
	if _, err := tbl.Join(context.Background(), "p1", "p1", 100); !errors.Is(err, ErrTableClosed) {
		t.Fatalf("expected ErrTableClosed, got %v", err)
	}
}
