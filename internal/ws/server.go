package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/table"
	httptransport "holdem-tables/internal/transport/http"
)

const (
	writeWait   = 10 * time.Second
	requestWait = 5 * time.Second
)

// Client is one websocket connection. A connection watches at most one table
// at a time; its identity comes from the upgrade request.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	identity lobby.Identity
	limiter  *rate.Limiter

	mu      sync.Mutex
	tableID string
	watcher *table.Watcher
}

type Server struct {
	lobby    *lobby.Service
	upgrader websocket.Upgrader
	perSec   rate.Limit
	burst    int

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing atomic.Bool
}

func NewServer(svc *lobby.Service, perSec float64, burst int) *Server {
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		lobby:    svc,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		perSec:   rate.Limit(perSec),
		burst:    burst,
		clients:  map[*Client]struct{}{},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 16),
		identity: lobby.Identity{
			ID:   strings.TrimSpace(r.Header.Get(httptransport.HeaderPlayerID)),
			Name: strings.TrimSpace(r.Header.Get(httptransport.HeaderPlayerName)),
		},
		limiter: rate.NewLimiter(s.perSec, s.burst),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	metricConnectionsTotal.Add(1)
	metricConnectionsActive.Add(1)
	log.Info().Str("conn_id", c.id).Str("player_id", c.identity.ID).Msg("ws connected")

	go s.writeLoop(c)
	s.readLoop(c)
}

// Close drops every open connection. Connections dropped this way keep
// their seats: a server stop is not a player leaving.
func (s *Server) Close() {
	s.closing.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		metricMessagesTotal.Add(1)
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.alert(c, "invalid_json", "", "")
			continue
		}
		if !c.limiter.Allow() {
			metricRateLimitedTotal.Add(1)
			s.alert(c, "rate_limited", msg.Type, "")
			continue
		}
		s.handle(c, msg)
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

func (s *Server) handle(c *Client, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), requestWait)
	defer cancel()

	switch msg.Type {
	case MsgJoin:
		if msg.Table == "" {
			s.alert(c, "invalid_request", msg.Type, "table is required")
			return
		}
		s.leaveCurrent(ctx, c)
		w, err := s.lobby.Watch(ctx, msg.Table, c.identity.ID)
		if err != nil {
			s.fail(c, msg.Type, err)
			return
		}
		c.mu.Lock()
		c.tableID = msg.Table
		c.watcher = w
		c.mu.Unlock()
		go s.pump(c, w)
	case MsgLeave:
		s.leaveCurrent(ctx, c)
	case MsgStartPlaying:
		tableID, ok := s.currentTable(c, msg)
		if !ok {
			return
		}
		if _, err := s.lobby.StartPlaying(ctx, tableID, c.identity); err != nil {
			s.fail(c, msg.Type, err)
		}
	case MsgStartSpectating:
		tableID, ok := s.currentTable(c, msg)
		if !ok {
			return
		}
		if err := s.lobby.StartSpectating(ctx, tableID, c.identity.ID); err != nil {
			s.fail(c, msg.Type, err)
		}
	case MsgRaise, MsgCall, MsgCheck, MsgFold:
		tableID, ok := s.currentTable(c, msg)
		if !ok {
			return
		}
		req := lobby.ActionRequest{Action: msg.Type, Amount: msg.Amount}
		if err := s.lobby.Act(ctx, tableID, c.identity.ID, req); err != nil {
			s.fail(c, msg.Type, err)
		}
	default:
		s.alert(c, "unknown_message", msg.Type, "")
	}
}

// currentTable resolves the table a message targets: the explicit one if it
// matches the watched table, otherwise the watched table.
func (s *Server) currentTable(c *Client, msg ClientMessage) (string, bool) {
	c.mu.Lock()
	tableID := c.tableID
	c.mu.Unlock()
	if tableID == "" || (msg.Table != "" && msg.Table != tableID) {
		s.alert(c, "not_joined", msg.Type, "join the table first")
		return "", false
	}
	if c.identity.ID == "" {
		s.alert(c, "identity_required", msg.Type, "")
		return "", false
	}
	return tableID, true
}

// leaveCurrent gives up any seat at the watched table and stops watching it.
func (s *Server) leaveCurrent(ctx context.Context, c *Client) {
	tableID, w := detach(c)
	if w == nil {
		return
	}
	if c.identity.ID != "" {
		if err := s.lobby.StartSpectating(ctx, tableID, c.identity.ID); err != nil {
			log.Warn().Err(err).Str("conn_id", c.id).Str("table_id", tableID).Msg("ws leave failed")
		}
	}
	w.Close()
}

// detach stops watching without touching the seat.
func detach(c *Client) (string, *table.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tableID, w := c.tableID, c.watcher
	c.tableID, c.watcher = "", nil
	return tableID, w
}

func (s *Server) pump(c *Client, w *table.Watcher) {
	for view := range w.C {
		msg, err := json.Marshal(GameState{Type: MsgGameState, TableStateView: view})
		if err != nil {
			continue
		}
		safeSend(c.send, msg)
	}
}

func (s *Server) fail(c *Client, request string, err error) {
	_, code := httptransport.MapError(err)
	log.Debug().Err(err).Str("conn_id", c.id).Str("player_id", c.identity.ID).Str("request", request).Msg("ws request rejected")
	s.alert(c, code, request, "")
}

func (s *Server) alert(c *Client, reason, request, message string) {
	msg, _ := json.Marshal(Alert{Type: MsgAlert, Reason: reason, Request: request, Message: message})
	safeSend(c.send, msg)
}

// unregister treats a dropped connection like a leave: the player loses the
// seat and anything they had committed to the pot. During Close only the
// watcher is dropped.
func (s *Server) unregister(c *Client) {
	if s.closing.Load() {
		if _, w := detach(c); w != nil {
			w.Close()
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), requestWait)
		defer cancel()
		s.leaveCurrent(ctx, c)
	}
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	metricConnectionsActive.Add(-1)
	log.Info().Str("conn_id", c.id).Str("player_id", c.identity.ID).Msg("ws disconnected")
	safeClose(c.send)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

// safeSend drops the message when the client is not keeping up.
func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}
