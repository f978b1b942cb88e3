package game

// Player is one seated (or queued) identity. ID is supplied by the
// identity provider and treated as an opaque key.
type Player struct {
	ID              string
	Name            string
	Balance         int64
	OriginalBalance int64
	ChipsOnTable    int64
	Hole            []Card
	PlayingHand     bool
	Acted           bool
	AllIn           bool
	DealtIn         bool
	LastAction      ActionType
}

func NewPlayer(id, name string, buyIn int64) *Player {
	return &Player{ID: id, Name: name, Balance: buyIn, OriginalBalance: buyIn}
}

func (p *Player) ResetForNewHand() {
	p.OriginalBalance = p.Balance
	p.ChipsOnTable = 0
	p.Hole = nil
	p.PlayingHand = true
	p.DealtIn = true
	p.Acted = false
	p.AllIn = false
	p.LastAction = ""
}

func (p *Player) Fold() {
	p.Hole = nil
	p.PlayingHand = false
	p.LastAction = ActionFold
}

// wager moves up to amount from the stack onto the table and returns what
// was actually moved.
func (p *Player) wager(amount int64) int64 {
	if amount > p.Balance {
		amount = p.Balance
	}
	if amount < 0 {
		amount = 0
	}
	p.Balance -= amount
	p.ChipsOnTable += amount
	if p.Balance == 0 && p.PlayingHand {
		p.AllIn = true
	}
	return amount
}

// canAct reports whether the player still owes decisions this hand.
func (p *Player) canAct() bool {
	return p.PlayingHand && !p.AllIn
}
