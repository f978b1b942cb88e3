package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/config"
	"holdem-tables/internal/game"
	"holdem-tables/internal/table"
	"holdem-tables/internal/testutil"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, cfg config.ServerConfig, limiter *ClientLimiter) *chi.Mux {
	t.Helper()
	st := testutil.NewMemWallets()
	m := table.NewManager(config.TableConfig{
		Count:       2,
		IDPrefix:    "publicGame",
		SeatLimit:   2,
		SmallBlind:  25,
		BigBlind:    50,
		TurnTimeout: time.Minute,
		RevealDelay: time.Millisecond,
	}, table.Options{})
	m.Start(context.Background())
	t.Cleanup(m.Close)
	if limiter == nil {
		limiter = NewClientLimiter(1000, 1000)
	}
	return NewRouter(cfg, Deps{
		Lobby:   lobby.NewService(st, m, 1000, 5000),
		Store:   st,
		Limiter: limiter,
	})
}

func do(t *testing.T, h http.Handler, method, path, player string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if player != "" {
		req.Header.Set(HeaderPlayerID, player)
		req.Header.Set(HeaderPlayerName, "Player "+player)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListTablesAndUnknownTable(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{}, nil)

	w := do(t, r, http.MethodGet, "/api/tables", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	var resp lobby.TablesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].TableID != "publicGame1" {
		t.Fatalf("unexpected tables %+v", resp.Items)
	}

	w = do(t, r, http.MethodGet, "/api/tables/publicGame9/state", "", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "table_not_found") {
		t.Fatalf("unknown table status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestMutationsRequireIdentity(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{}, nil)
	w := do(t, r, http.MethodPost, "/api/tables/publicGame1/players", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPlayHandOverHTTP(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{}, nil)

	for _, id := range []string{"p1", "p2"} {
		w := do(t, r, http.MethodPost, "/api/tables/publicGame1/players", id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("join %s status=%d body=%s", id, w.Code, w.Body.String())
		}
		var res lobby.JoinResponse
		_ = json.Unmarshal(w.Body.Bytes(), &res)
		if !res.Seated || res.BuyIn != 1000 {
			t.Fatalf("unexpected join response %+v", res)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := do(t, r, http.MethodGet, "/api/tables/publicGame1/state", "p1", nil)
		var st struct {
			Phase  string `json:"phase"`
			MySeat int    `json:"my_seat"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &st)
		if st.Phase == string(game.PhasePreflop) {
			if st.MySeat != 0 {
				t.Fatalf("expected p1 at seat 0, got %d", st.MySeat)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("hand never dealt, phase=%s", st.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := do(t, r, http.MethodPost, "/api/tables/publicGame1/actions", "p1", lobby.ActionRequest{Action: "call"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"reason":"not_your_turn"`) {
		t.Fatalf("out of turn status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodPost, "/api/tables/publicGame1/actions", "p2", lobby.ActionRequest{Action: "call"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"accepted":true`) {
		t.Fatalf("call status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodDelete, "/api/tables/publicGame1/players/me", "p2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leave status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/api/me", "p2", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"balance":5000`) {
		t.Fatalf("wallet status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{}, NewClientLimiter(0, 1))
	w := do(t, r, http.MethodPost, "/api/tables/publicGame1/actions", "p1", lobby.ActionRequest{Action: "check"})
	if w.Code == http.StatusTooManyRequests {
		t.Fatal("first request should pass the limiter")
	}
	w = do(t, r, http.MethodPost, "/api/tables/publicGame1/actions", "p1", lobby.ActionRequest{Action: "check"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestAdminRoutesNeedKey(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{AdminAPIKey: "secret"}, nil)
	w := do(t, r, http.MethodGet, "/api/admin/ledger?player_id=p1", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/ledger?player_id=p1", nil)
	req.Header.Set("X-Admin-Key", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("ledger status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestEventsStreamReplaysBufferedEvents(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{}, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	if w := do(t, r, http.MethodPost, "/api/tables/publicGame2/players", "p1", nil); w.Code != http.StatusOK {
		t.Fatalf("join status=%d", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/tables/publicGame2/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sawEvent, sawSnapshot := false, false
	for !(sawEvent && sawSnapshot) && sc.Scan() {
		switch sc.Text() {
		case "event: table_event":
			sawEvent = true
		case "event: table_snapshot":
			sawSnapshot = true
		}
	}
	if !sawEvent || !sawSnapshot {
		t.Fatalf("expected replayed events, event=%v snapshot=%v", sawEvent, sawSnapshot)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{game.ErrNotYourTurn, http.StatusBadRequest, "not_your_turn"},
		{game.ErrDealingInProgress, http.StatusConflict, "dealing_in_progress"},
		{lobby.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
		{table.ErrTableNotFound, http.StatusNotFound, "table_not_found"},
		{table.ErrSeatedElsewhere, http.StatusConflict, "seated_elsewhere"},
		{table.ErrTableFault, http.StatusInternalServerError, "table_fault"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := MapError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v => %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestNewerThan(t *testing.T) {
	if !newerThan("10", "9") || newerThan("9", "10") || newerThan("5", "5") || !newerThan("1", "") {
		t.Fatal("numeric event id ordering broken")
	}
}
