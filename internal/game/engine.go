package game

import (
	"fmt"
	"strings"

	"holdem-tables/internal/ids"
	"holdem-tables/internal/ledger"
)

const recentEventLimit = 30

// Engine is the state machine of one table. It is not safe for concurrent
// use; the table actor owns it and serializes every call.
type Engine struct {
	cfg   Config
	seats *SeatManager
	deck  *Deck
	eval  Evaluator

	HandID     string
	Phase      Phase
	Flags      RoundFlags
	Community  []Card
	Pot        int64
	CurrentBet int64
	DealerPos  int
	TurnIndex  int

	handSeq    uint64
	turnSeq    uint64
	handsDealt int

	recent  []string
	pending []string
	reports []ledger.Report
}

func NewEngine(cfg Config, eval Evaluator) *Engine {
	if eval == nil {
		eval = PokerEvaluator{}
	}
	return &Engine{
		cfg:   cfg,
		seats: NewSeatManager(cfg.SeatLimit),
		eval:  eval,
		Phase: PhaseAwaitingPlayers,
	}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Seats() []*Player { return e.seats.Seats() }

func (e *Engine) Waiting() []*Player { return e.seats.Waiting() }

func (e *Engine) Deck() *Deck { return e.deck }

// TurnSeq changes whenever the pending decision moves to another seat or
// the hand ends. Turn timers carry it to detect staleness.
func (e *Engine) TurnSeq() uint64 { return e.turnSeq }

// HandSeq counts dealt hands.
func (e *Engine) HandSeq() uint64 { return e.handSeq }

func (e *Engine) HandInProgress() bool {
	return e.Flags.Started && !e.Flags.Concluded
}

// CurrentPlayer is the seat owing a decision, or nil outside betting.
func (e *Engine) CurrentPlayer() *Player {
	if !e.Phase.Betting() || e.TurnIndex < 0 || e.TurnIndex >= e.seats.Len() {
		return nil
	}
	return e.seats.At(e.TurnIndex)
}

func (e *Engine) Contains(playerID string) bool {
	return e.seats.Index(playerID) >= 0 || e.seats.IsWaiting(playerID)
}

func (e *Engine) Recent() []string {
	return append([]string(nil), e.recent...)
}

// TakeEvents drains the events noted since the previous call.
func (e *Engine) TakeEvents() []string {
	out := e.pending
	e.pending = nil
	return out
}

// TakeReports drains settlement reports that must reach the ledger.
func (e *Engine) TakeReports() []ledger.Report {
	out := e.reports
	e.reports = nil
	return out
}

// ChipCount returns the chips currently on the table (stacks, wagers and
// pot) next to the sum of the seated players' hand-start balances.
func (e *Engine) ChipCount() (inPlay, original int64) {
	for _, p := range e.seats.Seats() {
		inPlay += p.Balance + p.ChipsOnTable
		original += p.OriginalBalance
	}
	return inPlay + e.Pot, original
}

// Join seats the player or puts them on the waiting list.
func (e *Engine) Join(p *Player) (bool, error) {
	seated, err := e.seats.Join(p)
	if err != nil {
		return false, err
	}
	if seated {
		e.note("%s sat down with $%d.", p.Name, p.Balance)
	} else {
		e.note("%s joined the waiting list.", p.Name)
	}
	return seated, nil
}

// Leave removes a player from the queue or from their seat. A seated player
// leaving mid-hand forfeits what they already wagered.
func (e *Engine) Leave(playerID string) error {
	if e.seats.RemoveWaiting(playerID) {
		return nil
	}
	idx := e.seats.Index(playerID)
	if idx < 0 {
		return ErrNotSeated
	}
	p := e.seats.At(idx)
	if e.HandInProgress() && p.DealtIn {
		e.Pot += p.ChipsOnTable
		p.ChipsOnTable = 0
		p.PlayingHand = false
		p.Hole = nil
		e.report(p, ledger.OutcomeLoss)
	}
	e.removeAt(idx)
	e.note("%s left the table.", p.Name)
	e.promote()
	return nil
}

// ExpireTurn force-removes the pending player when seq still names the
// current decision. It returns the removed player's id.
func (e *Engine) ExpireTurn(seq uint64) (string, bool) {
	p := e.CurrentPlayer()
	if seq != e.turnSeq || p == nil {
		return "", false
	}
	e.note("%s ran out of time.", p.Name)
	if err := e.Leave(p.ID); err != nil {
		return "", false
	}
	return p.ID, true
}

// StateCheck runs after every mutation. It advances the hand as far as it
// can without outside help and tells the caller what to schedule next.
func (e *Engine) StateCheck() Next {
	for {
		switch e.Phase {
		case PhaseDealing, PhaseShowdownPending:
			return NextNone
		}
		if e.seats.Len() < 2 {
			if e.HandInProgress() {
				e.forceConclude()
			}
			e.Phase = PhaseAwaitingPlayers
			return NextNone
		}
		if !e.HandInProgress() {
			e.Phase = PhaseDealing
			return NextShuffle
		}
		if e.countContenders() < 2 {
			e.enterShowdown()
			return NextSettle
		}
		if !e.roundComplete() {
			return NextNone
		}

		e.sweep()
		if e.countActors() > 1 {
			for _, p := range e.seats.Seats() {
				p.Acted = false
			}
		}
		switch {
		case !e.Flags.Flop:
			e.dealCommunity(3)
			e.Phase = PhaseFlop
		case !e.Flags.Turn:
			e.dealCommunity(1)
			e.Phase = PhaseTurn
		case !e.Flags.River:
			e.dealCommunity(1)
			e.Phase = PhaseRiver
		default:
			e.enterShowdown()
			return NextSettle
		}
		e.TurnIndex = e.nextTurnFrom((e.DealerPos + 1) % e.seats.Len())
		e.turnSeq++
	}
}

// DealHand starts a hand with a freshly shuffled deck. It is only valid
// while the table is in PhaseDealing.
func (e *Engine) DealHand(deck *Deck) error {
	if e.Phase != PhaseDealing {
		return ErrNotDealing
	}
	n := e.seats.Len()
	if n < 2 {
		e.Phase = PhaseAwaitingPlayers
		return nil
	}

	e.HandID = ids.New()
	e.handSeq++
	e.Community = nil
	e.Pot = 0
	e.CurrentBet = 0
	e.Flags = RoundFlags{Started: true}
	e.deck = deck
	if e.handsDealt > 0 {
		e.DealerPos = (e.DealerPos + 1) % n
	} else {
		e.DealerPos %= n
	}
	e.handsDealt++

	seats := e.seats.Seats()
	for _, p := range seats {
		p.ResetForNewHand()
	}
	for pass := 0; pass < 2; pass++ {
		for _, p := range seats {
			p.Hole = append(p.Hole, deck.Deal())
		}
	}
	e.Phase = PhasePreflop
	e.note("Hand %d started, %s has the button.", e.handSeq, seats[e.DealerPos].Name)

	e.postBlind(seats[(e.DealerPos+1)%n], e.cfg.SmallBlind, "small")
	e.postBlind(seats[(e.DealerPos+2)%n], e.cfg.BigBlind, "big")
	e.CurrentBet = e.cfg.BigBlind
	e.TurnIndex = e.nextTurnFrom((e.DealerPos + 3) % n)
	e.turnSeq++
	return nil
}

// Act applies one betting decision for playerID. Any error leaves the table
// untouched.
func (e *Engine) Act(playerID string, action ActionType, amount int64) error {
	idx, p, err := e.validateTurn(playerID)
	if err != nil {
		return err
	}
	if err := validateChips(p, e.CurrentBet, action); err != nil {
		return err
	}

	switch action {
	case ActionFold:
		p.Fold()
		e.note("%s folded.", p.Name)
	case ActionCheck:
		e.note("%s checked.", p.Name)
	case ActionCall:
		paid := p.wager(e.CurrentBet - p.ChipsOnTable)
		e.note("%s called $%d%s.", p.Name, paid, allInSuffix(p))
	case ActionRaise:
		if err := e.raise(idx, p, amount); err != nil {
			return err
		}
	}
	p.Acted = true
	p.LastAction = action
	e.TurnIndex = e.nextTurnFrom((e.TurnIndex + 1) % e.seats.Len())
	e.turnSeq++
	return nil
}

func (e *Engine) raise(idx int, p *Player, amount int64) error {
	if amount <= 0 {
		return ErrInvalidRaise
	}
	target := p.ChipsOnTable + amount
	if limit := RaiseCap(e.seats.Seats()); target > limit {
		target = limit
	}
	add := target - p.ChipsOnTable
	if add <= 0 {
		return ErrInvalidRaise
	}
	allIn := add >= p.Balance
	if target <= e.CurrentBet && !allIn {
		return ErrInvalidRaise
	}

	p.wager(add)
	if target <= e.CurrentBet {
		e.note("%s went all in for $%d.", p.Name, p.ChipsOnTable)
		return nil
	}
	e.CurrentBet = target
	for i, o := range e.seats.Seats() {
		if i != idx && o.canAct() {
			o.Acted = false
		}
	}
	e.note("%s raised to $%d%s.", p.Name, target, allInSuffix(p))
	return nil
}

// Settle pays out the pot of a hand waiting in PhaseShowdownPending. If
// ranking fails nothing is mutated and the call can be retried.
func (e *Engine) Settle() error {
	if e.Phase != PhaseShowdownPending {
		return ErrNoShowdown
	}
	seats := e.seats.Seats()
	var contenders []int
	for i, p := range seats {
		if p.PlayingHand {
			contenders = append(contenders, i)
		}
	}

	var winners []int
	labels := map[int]string{}
	switch len(contenders) {
	case 0:
		for i := range seats {
			winners = append(winners, i)
		}
	case 1:
		winners = contenders
	default:
		strengths := make([]HandStrength, len(contenders))
		for k, idx := range contenders {
			hand, err := e.sevenCards(seats[idx])
			if err != nil {
				return err
			}
			s, err := e.eval.Rank(hand)
			if err != nil {
				return fmt.Errorf("rank hand of %s: %w", seats[idx].ID, err)
			}
			strengths[k] = s
			if d, ok := e.eval.(Describer); ok {
				if label, err := d.Describe(hand); err == nil {
					labels[idx] = label
				}
			}
		}
		for _, k := range Winners(strengths) {
			winners = append(winners, contenders[k])
		}
	}

	won := map[int]bool{}
	for idx, amount := range SplitPot(e.Pot, winners, e.DealerPos, len(seats)) {
		seats[idx].Balance += amount
		won[idx] = true
		if label := labels[idx]; label != "" {
			e.note("%s won $%d with %s.", seats[idx].Name, amount, label)
		} else {
			e.note("%s won $%d.", seats[idx].Name, amount)
		}
	}
	e.Pot = 0

	for i, p := range seats {
		if !p.DealtIn && !won[i] {
			continue
		}
		switch {
		case won[i] && len(winners) > 1:
			e.report(p, ledger.OutcomeDraw)
		case won[i]:
			e.report(p, ledger.OutcomeWin)
		default:
			e.report(p, ledger.OutcomeLoss)
		}
	}
	for _, p := range seats {
		p.OriginalBalance = p.Balance
		p.PlayingHand = false
		p.DealtIn = false
		p.Acted = false
		p.AllIn = false
	}
	e.Flags.Concluded = true
	e.Phase = PhaseSettled
	e.turnSeq++

	for i := e.seats.Len() - 1; i >= 0; i-- {
		if p := e.seats.At(i); p.Balance == 0 {
			e.removeAt(i)
			e.note("%s is out of chips.", p.Name)
		}
	}
	e.promote()
	return nil
}

func (e *Engine) forceConclude() {
	e.enterShowdown()
	// At most one contender is left, so ranking never runs.
	_ = e.Settle()
}

func (e *Engine) enterShowdown() {
	e.sweep()
	if e.countContenders() > 1 {
		if missing := 5 - len(e.Community); missing > 0 {
			e.dealCommunity(missing)
		}
		for _, p := range e.seats.Seats() {
			if p.PlayingHand {
				e.note("%s shows %s.", p.Name, strings.Join(CardStrings(p.Hole), " "))
			}
		}
	}
	e.Phase = PhaseShowdownPending
	e.turnSeq++
}

func (e *Engine) postBlind(p *Player, amount int64, label string) {
	paid := p.wager(amount)
	e.note("%s posted $%d %s blind%s.", p.Name, paid, label, allInSuffix(p))
}

func (e *Engine) sweep() {
	for _, p := range e.seats.Seats() {
		e.Pot += p.ChipsOnTable
		p.ChipsOnTable = 0
	}
	e.CurrentBet = 0
}

func (e *Engine) dealCommunity(k int) {
	for i := 0; i < k; i++ {
		e.Community = append(e.Community, e.deck.Deal())
	}
	n := len(e.Community)
	e.Flags.Flop = n >= 3
	e.Flags.Turn = n >= 4
	e.Flags.River = n >= 5
	e.note("Board: %s.", strings.Join(CardStrings(e.Community), " "))
}

func (e *Engine) sevenCards(p *Player) ([7]Card, error) {
	var hand [7]Card
	if len(p.Hole) != 2 || len(e.Community) != 5 {
		return hand, fmt.Errorf("incomplete hand for %s: %d hole, %d board", p.ID, len(p.Hole), len(e.Community))
	}
	copy(hand[:5], e.Community)
	copy(hand[5:], p.Hole)
	return hand, nil
}

func (e *Engine) countContenders() int {
	n := 0
	for _, p := range e.seats.Seats() {
		if p.PlayingHand {
			n++
		}
	}
	return n
}

func (e *Engine) countActors() int {
	n := 0
	for _, p := range e.seats.Seats() {
		if p.canAct() {
			n++
		}
	}
	return n
}

// roundComplete: every contender has acted or has nothing left to bet.
func (e *Engine) roundComplete() bool {
	for _, p := range e.seats.Seats() {
		if p.canAct() && !p.Acted {
			return false
		}
	}
	return true
}

// nextTurnFrom scans clockwise from start for a contender that can still
// act, preferring one that has not acted this round.
func (e *Engine) nextTurnFrom(start int) int {
	seats := e.seats.Seats()
	n := len(seats)
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if seats[idx].canAct() && !seats[idx].Acted {
			return idx
		}
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if seats[idx].canAct() {
			return idx
		}
	}
	return start % n
}

// removeAt drops a seat and keeps the dealer and turn indices pointing at
// the same players.
func (e *Engine) removeAt(idx int) {
	wasTurn := e.Phase.Betting() && idx == e.TurnIndex
	e.seats.RemoveSeat(idx)
	n := e.seats.Len()
	if n == 0 {
		e.DealerPos, e.TurnIndex = 0, 0
		return
	}
	if e.handsDealt > 0 && idx <= e.DealerPos {
		e.DealerPos = (e.DealerPos - 1 + n) % n
	}
	e.DealerPos %= n
	if idx < e.TurnIndex {
		e.TurnIndex--
	}
	e.TurnIndex %= n
	if wasTurn {
		e.TurnIndex = e.nextTurnFrom(e.TurnIndex)
		e.turnSeq++
	}
}

func (e *Engine) promote() {
	for _, p := range e.seats.Promote() {
		e.note("%s took a seat from the waiting list.", p.Name)
	}
}

func (e *Engine) report(p *Player, outcome ledger.Outcome) {
	e.reports = append(e.reports, ledger.Report{
		EntryID:  ids.New(),
		TableID:  e.cfg.TableID,
		HandID:   e.HandID,
		PlayerID: p.ID,
		Outcome:  outcome,
		Delta:    p.Balance - p.OriginalBalance,
	})
}

func (e *Engine) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.pending = append(e.pending, msg)
	e.recent = append(e.recent, msg)
	if len(e.recent) > recentEventLimit {
		e.recent = e.recent[len(e.recent)-recentEventLimit:]
	}
}

func allInSuffix(p *Player) string {
	if p.AllIn {
		return " and is all in"
	}
	return ""
}
