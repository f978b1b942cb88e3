package game

import "errors"

var (
	ErrInvalidAction     = errors.New("invalid_action")
	ErrInvalidRaise      = errors.New("invalid_raise")
	ErrNotYourTurn       = errors.New("not_your_turn")
	ErrDealingInProgress = errors.New("dealing_in_progress")
	ErrNoHandInProgress  = errors.New("no_hand_in_progress")
	ErrNotSeated         = errors.New("not_seated")
	ErrAlreadyJoined     = errors.New("already_joined")
	ErrNoShowdown        = errors.New("no_showdown_pending")
	ErrNotDealing        = errors.New("not_dealing")
)

// validateTurn checks everything an action needs apart from the
// action-specific chip preconditions.
func (e *Engine) validateTurn(playerID string) (int, *Player, error) {
	if !e.Phase.Betting() {
		if e.Phase == PhaseDealing {
			return -1, nil, ErrDealingInProgress
		}
		return -1, nil, ErrNoHandInProgress
	}
	idx := e.seats.Index(playerID)
	if idx < 0 {
		return -1, nil, ErrNotSeated
	}
	if idx != e.TurnIndex {
		return -1, nil, ErrNotYourTurn
	}
	p := e.seats.At(idx)
	if !p.canAct() || p.Acted {
		return -1, nil, ErrInvalidAction
	}
	return idx, p, nil
}

func validateChips(p *Player, currentBet int64, action ActionType) error {
	switch action {
	case ActionFold, ActionRaise:
		return nil
	case ActionCheck:
		if currentBet != p.ChipsOnTable {
			return ErrInvalidAction
		}
		return nil
	case ActionCall:
		if currentBet <= p.ChipsOnTable {
			return ErrInvalidAction
		}
		return nil
	default:
		return ErrInvalidAction
	}
}
