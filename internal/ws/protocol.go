package ws

import "holdem-tables/internal/game/viewmodel"

const (
	MsgJoin            = "join"
	MsgLeave           = "leave"
	MsgStartPlaying    = "start_playing"
	MsgStartSpectating = "start_spectating"
	MsgRaise           = "raise"
	MsgCall            = "call"
	MsgCheck           = "check"
	MsgFold            = "fold"

	MsgGameState = "game_state"
	MsgAlert     = "alert"
)

// ClientMessage is every message a client may send. Table is required for
// join and optional afterwards; Amount is only read for raises.
type ClientMessage struct {
	Type   string `json:"type"`
	Table  string `json:"table,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

type GameState struct {
	Type string `json:"type"`
	viewmodel.TableStateView
}

type Alert struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
	Request string `json:"request,omitempty"`
}
