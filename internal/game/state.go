package game

type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
)

func ParseAction(s string) (ActionType, bool) {
	switch a := ActionType(s); a {
	case ActionFold, ActionCheck, ActionCall, ActionRaise:
		return a, true
	}
	return "", false
}

// Phase is the table's position in the hand loop. Community stages are dealt
// synchronously inside the state check, so only the shuffle has a phase of
// its own.
type Phase string

const (
	PhaseAwaitingPlayers Phase = "awaiting_players"
	PhaseDealing         Phase = "dealing"
	PhasePreflop         Phase = "betting_preflop"
	PhaseFlop            Phase = "betting_flop"
	PhaseTurn            Phase = "betting_turn"
	PhaseRiver           Phase = "betting_river"
	PhaseShowdownPending Phase = "showdown_pending"
	PhaseSettled         Phase = "settled"
)

func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

type RoundFlags struct {
	Started   bool
	Flop      bool
	Turn      bool
	River     bool
	Concluded bool
}

// Next tells the owner of an Engine which deferred step it must schedule.
type Next int

const (
	NextNone Next = iota
	// NextShuffle: build a deck off the table goroutine, then call DealHand.
	NextShuffle
	// NextSettle: wait the reveal delay, then call Settle.
	NextSettle
)

type Config struct {
	TableID    string
	SeatLimit  int
	SmallBlind int64
	BigBlind   int64
}
