package viewmodel

import (
	"time"

	"holdem-tables/internal/game"
)

type SeatView struct {
	Seat         int      `json:"seat"`
	PlayerID     string   `json:"player_id"`
	Name         string   `json:"name"`
	Balance      int64    `json:"balance"`
	ChipsOnTable int64    `json:"chips_on_table"`
	ToCall       int64    `json:"to_call"`
	LastAction   string   `json:"last_action,omitempty"`
	HoleCards    []string `json:"hole_cards,omitempty"`
	CardCount    int      `json:"card_count"`
	PlayingHand  bool     `json:"playing_hand"`
	AllIn        bool     `json:"all_in"`
	IsDealer     bool     `json:"is_dealer"`
	IsTurn       bool     `json:"is_turn"`
}

type WaitingView struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// TableStateView is what one viewer is allowed to see of a table.
type TableStateView struct {
	TableID         string        `json:"table_id"`
	HandID          string        `json:"hand_id,omitempty"`
	Phase           string        `json:"phase"`
	SeatedPlayers   []SeatView    `json:"seated_players"`
	WaitingPlayers  []WaitingView `json:"waiting_players"`
	CommunityCards  []string      `json:"community_cards"`
	TurnIndex       int           `json:"turn_index"`
	CurrentBet      int64         `json:"current_bet"`
	PotAmount       int64         `json:"pot_amount"`
	SmallBlind      int64         `json:"small_blind"`
	BigBlind        int64         `json:"big_blind"`
	SeatLimit       int           `json:"seat_limit"`
	MySeat          int           `json:"my_seat"`
	ActionTimeoutMS int64         `json:"action_timeout_ms"`
	RecentEvents    []string      `json:"recent_events"`
}

// PublicViewer sees no hole cards outside a showdown.
const PublicViewer = ""

// BuildTableState must run on the goroutine that owns e.
func BuildTableState(e *game.Engine, viewerID string, actionTimeout time.Duration) TableStateView {
	cfg := e.Config()
	reveal := e.Phase == game.PhaseShowdownPending
	turn := -1
	if e.CurrentPlayer() != nil {
		turn = e.TurnIndex
	}

	view := TableStateView{
		TableID:         cfg.TableID,
		HandID:          e.HandID,
		Phase:           string(e.Phase),
		CommunityCards:  game.CardStrings(e.Community),
		TurnIndex:       turn,
		CurrentBet:      e.CurrentBet,
		PotAmount:       e.Pot,
		SmallBlind:      cfg.SmallBlind,
		BigBlind:        cfg.BigBlind,
		SeatLimit:       cfg.SeatLimit,
		MySeat:          -1,
		ActionTimeoutMS: actionTimeout.Milliseconds(),
		RecentEvents:    e.Recent(),
	}

	seats := e.Seats()
	view.SeatedPlayers = make([]SeatView, 0, len(seats))
	for i, p := range seats {
		toCall := e.CurrentBet - p.ChipsOnTable
		if toCall < 0 || !p.PlayingHand {
			toCall = 0
		}
		sv := SeatView{
			Seat:         i,
			PlayerID:     p.ID,
			Name:         p.Name,
			Balance:      p.Balance,
			ChipsOnTable: p.ChipsOnTable,
			ToCall:       toCall,
			LastAction:   string(p.LastAction),
			CardCount:    len(p.Hole),
			PlayingHand:  p.PlayingHand,
			AllIn:        p.AllIn,
			IsDealer:     e.HandSeq() > 0 && i == e.DealerPos,
			IsTurn:       i == turn,
		}
		mine := viewerID != PublicViewer && p.ID == viewerID
		if mine {
			view.MySeat = i
		}
		if mine || (reveal && p.PlayingHand) {
			sv.HoleCards = game.CardStrings(p.Hole)
		}
		view.SeatedPlayers = append(view.SeatedPlayers, sv)
	}

	waiting := e.Waiting()
	view.WaitingPlayers = make([]WaitingView, 0, len(waiting))
	for _, p := range waiting {
		view.WaitingPlayers = append(view.WaitingPlayers, WaitingView{PlayerID: p.ID, Name: p.Name})
	}
	return view
}
