package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/config"
	"holdem-tables/internal/ledger"
	"holdem-tables/internal/table"
	"holdem-tables/internal/testutil"
	httptransport "holdem-tables/internal/transport/http"
)

type frame struct {
	Type          string `json:"type"`
	Reason        string `json:"reason"`
	Request       string `json:"request"`
	Phase         string `json:"phase"`
	MySeat        int    `json:"my_seat"`
	TurnIndex     int    `json:"turn_index"`
	SeatedPlayers []struct {
		PlayerID string `json:"player_id"`
	} `json:"seated_players"`
}

func newTestServer(t *testing.T, perSec float64, burst int) (*httptest.Server, *lobby.Service) {
	t.Helper()
	m := table.NewManager(config.TableConfig{
		Count:       1,
		IDPrefix:    "publicGame",
		SeatLimit:   2,
		SmallBlind:  25,
		BigBlind:    50,
		TurnTimeout: time.Minute,
		RevealDelay: time.Millisecond,
	}, table.Options{})
	m.Start(context.Background())
	svc := lobby.NewService(testutil.NewMemWallets(), m, 1000, 5000)
	srv := NewServer(svc, perSec, burst)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		m.Close()
	})
	return ts, svc
}

func dial(t *testing.T, ts *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if playerID != "" {
		header.Set(httptransport.HeaderPlayerID, playerID)
		header.Set(httptransport.HeaderPlayerName, strings.ToUpper(playerID))
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, want func(frame) bool) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if want(f) {
			return f
		}
	}
}

func isAlert(reason string) func(frame) bool {
	return func(f frame) bool { return f.Type == MsgAlert && f.Reason == reason }
}

func TestSpectatorReceivesPublicState(t *testing.T) {
	ts, _ := newTestServer(t, 100, 100)
	conn := dial(t, ts, "")

	send(t, conn, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
	f := readUntil(t, conn, func(f frame) bool { return f.Type == MsgGameState })
	if f.Phase != "awaiting_players" || f.MySeat != -1 {
		t.Fatalf("unexpected initial state %+v", f)
	}

	send(t, conn, ClientMessage{Type: MsgJoin, Table: "nowhere"})
	readUntil(t, conn, isAlert("table_not_found"))

	send(t, conn, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
	readUntil(t, conn, func(f frame) bool { return f.Type == MsgGameState })
	send(t, conn, ClientMessage{Type: MsgStartPlaying})
	readUntil(t, conn, isAlert("identity_required"))
}

func TestActionsBeforeJoinAreRejected(t *testing.T) {
	ts, _ := newTestServer(t, 100, 100)
	conn := dial(t, ts, "p1")
	send(t, conn, ClientMessage{Type: MsgCheck, Table: "publicGame1"})
	f := readUntil(t, conn, isAlert("not_joined"))
	if f.Request != MsgCheck {
		t.Fatalf("expected alert for check, got %+v", f)
	}
	send(t, conn, ClientMessage{Type: "shove"})
	readUntil(t, conn, isAlert("unknown_message"))
}

func TestTwoPlayersGetPersonalStateAndTurnErrors(t *testing.T) {
	ts, _ := newTestServer(t, 100, 100)
	c1 := dial(t, ts, "p1")
	c2 := dial(t, ts, "p2")

	for _, c := range []*websocket.Conn{c1, c2} {
		send(t, c, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
		readUntil(t, c, func(f frame) bool { return f.Type == MsgGameState })
		send(t, c, ClientMessage{Type: MsgStartPlaying})
	}

	f1 := readUntil(t, c1, func(f frame) bool { return f.Phase == "betting_preflop" })
	if f1.MySeat != 0 {
		t.Fatalf("expected p1 at seat 0, got %d", f1.MySeat)
	}
	f2 := readUntil(t, c2, func(f frame) bool { return f.Phase == "betting_preflop" })
	if f2.MySeat != 1 || f2.TurnIndex != 1 {
		t.Fatalf("expected p2 at seat 1 to act, got seat=%d turn=%d", f2.MySeat, f2.TurnIndex)
	}

	send(t, c1, ClientMessage{Type: MsgCall})
	readUntil(t, c1, isAlert("not_your_turn"))

	send(t, c2, ClientMessage{Type: MsgCall})
	readUntil(t, c1, func(f frame) bool { return f.Type == MsgGameState && f.TurnIndex == 0 })
}

func TestDisconnectGivesUpSeat(t *testing.T) {
	ts, svc := newTestServer(t, 100, 100)
	c1 := dial(t, ts, "p1")
	c2 := dial(t, ts, "p2")
	for _, c := range []*websocket.Conn{c1, c2} {
		send(t, c, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
		readUntil(t, c, func(f frame) bool { return f.Type == MsgGameState })
		send(t, c, ClientMessage{Type: MsgStartPlaying})
	}
	readUntil(t, c1, func(f frame) bool { return f.Phase == "betting_preflop" })

	_ = c2.Close()
	f := readUntil(t, c1, func(f frame) bool { return f.Type == MsgGameState && len(f.SeatedPlayers) == 1 })
	if f.SeatedPlayers[0].PlayerID != "p1" || f.Phase != "awaiting_players" {
		t.Fatalf("unexpected state after disconnect %+v", f)
	}
	st, err := svc.State(context.Background(), "publicGame1", "")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(st.SeatedPlayers) != 1 {
		t.Fatalf("expected one seat left, got %d", len(st.SeatedPlayers))
	}
}

func TestConnectionRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, 0, 1)
	conn := dial(t, ts, "p1")
	send(t, conn, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
	readUntil(t, conn, func(f frame) bool { return f.Type == MsgGameState })
	send(t, conn, ClientMessage{Type: MsgStartPlaying})
	readUntil(t, conn, isAlert("rate_limited"))
}

type recordingSettler struct {
	mu      sync.Mutex
	reports []ledger.Report
}

func (r *recordingSettler) Submit(reports ...ledger.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, reports...)
}

func (r *recordingSettler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func TestServerCloseKeepsSeats(t *testing.T) {
	settler := &recordingSettler{}
	m := table.NewManager(config.TableConfig{
		Count:       1,
		IDPrefix:    "publicGame",
		SeatLimit:   2,
		SmallBlind:  25,
		BigBlind:    50,
		TurnTimeout: time.Minute,
		RevealDelay: time.Millisecond,
	}, table.Options{Settler: settler})
	m.Start(context.Background())
	defer m.Close()
	svc := lobby.NewService(testutil.NewMemWallets(), m, 1000, 5000)
	srv := NewServer(svc, 100, 100)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c1 := dial(t, ts, "p1")
	c2 := dial(t, ts, "p2")
	for _, c := range []*websocket.Conn{c1, c2} {
		send(t, c, ClientMessage{Type: MsgJoin, Table: "publicGame1"})
		readUntil(t, c, func(f frame) bool { return f.Type == MsgGameState })
		send(t, c, ClientMessage{Type: MsgStartPlaying})
	}
	readUntil(t, c1, func(f frame) bool { return f.Phase == "betting_preflop" })

	srv.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.clients)
		srv.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connections still registered after Close: %d", n)
		}
		time.Sleep(2 * time.Millisecond)
	}

	st, err := svc.State(context.Background(), "publicGame1", "")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(st.SeatedPlayers) != 2 || st.Phase != "betting_preflop" {
		t.Fatalf("server stop must not unseat players, got phase=%s seated=%d", st.Phase, len(st.SeatedPlayers))
	}
	if n := settler.count(); n != 0 {
		t.Fatalf("server stop produced %d settlement reports", n)
	}
}
