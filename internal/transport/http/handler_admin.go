package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"holdem-tables/internal/store"
)

type AdminStore interface {
	Ping(ctx context.Context) error
	ListLedgerEntries(ctx context.Context, playerID string, limit int) ([]store.LedgerEntry, error)
}

type AdminHandlers struct {
	store AdminStore
}

func NewAdminHandlers(st AdminStore) *AdminHandlers {
	return &AdminHandlers{store: st}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("player_id")
		if playerID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		limit := parseLimit(r, 50, 500)
		items, err := h.store.ListLedgerEntries(r.Context(), playerID, limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if items == nil {
			items = []store.LedgerEntry{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "limit": limit})
	}
}
