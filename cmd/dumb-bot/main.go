package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"time"

	"holdem-tables/internal/config"
	"holdem-tables/internal/game/viewmodel"
	httptransport "holdem-tables/internal/transport/http"
	"holdem-tables/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	header := http.Header{}
	header.Set(httptransport.HeaderPlayerID, cfg.PlayerID)
	header.Set(httptransport.HeaderPlayerName, cfg.PlayerName)
	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, header)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	for _, m := range []ws.ClientMessage{
		{Type: ws.MsgJoin, Table: cfg.Table},
		{Type: ws.MsgStartPlaying},
	} {
		if err := conn.WriteJSON(m); err != nil {
			log.Fatal().Err(err).Str("type", m.Type).Msg("write failed")
		}
	}
	log.Info().Str("player_id", cfg.PlayerID).Str("table", cfg.Table).Msg("bot joined")

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	lastTurn := ""
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}
		if base.Type == ws.MsgAlert {
			var a ws.Alert
			_ = json.Unmarshal(data, &a)
			log.Warn().Str("reason", a.Reason).Str("request", a.Request).Msg("alert")
			continue
		}
		if base.Type != ws.MsgGameState {
			continue
		}
		var state viewmodel.TableStateView
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		if state.MySeat < 0 || state.TurnIndex != state.MySeat {
			continue
		}
		// several snapshots can arrive for the same turn
		key := turnKey(state)
		if key == lastTurn {
			continue
		}
		lastTurn = key
		msg := decide(rnd, state)
		if err := conn.WriteJSON(msg); err != nil {
			log.Error().Err(err).Msg("write action failed")
			return
		}
		log.Debug().Str("action", msg.Type).Int64("amount", msg.Amount).Str("phase", state.Phase).Msg("acted")
	}
}

func turnKey(s viewmodel.TableStateView) string {
	b, _ := json.Marshal([]any{s.HandID, s.Phase, s.CurrentBet, s.PotAmount, len(s.RecentEvents), s.TurnIndex})
	return string(b)
}

func decide(rnd *rand.Rand, s viewmodel.TableStateView) ws.ClientMessage {
	var toCall int64
	if s.MySeat >= 0 && s.MySeat < len(s.SeatedPlayers) {
		toCall = s.SeatedPlayers[s.MySeat].ToCall
	}
	if toCall == 0 {
		if rnd.Intn(4) == 0 {
			return ws.ClientMessage{Type: ws.MsgRaise, Amount: s.BigBlind}
		}
		return ws.ClientMessage{Type: ws.MsgCheck}
	}
	switch rnd.Intn(6) {
	case 0:
		return ws.ClientMessage{Type: ws.MsgFold}
	case 1:
		return ws.ClientMessage{Type: ws.MsgRaise, Amount: toCall + s.BigBlind}
	default:
		return ws.ClientMessage{Type: ws.MsgCall}
	}
}
