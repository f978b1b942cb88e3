package httptransport

import (
	"encoding/json"
	"net/http"

	"holdem-tables/internal/app/lobby"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type TableHandlers struct {
	svc *lobby.Service
}

func NewTableHandlers(svc *lobby.Service) *TableHandlers {
	return &TableHandlers{svc: svc}
}

func (h *TableHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Tables(r.Context())
		if err != nil {
			status, code := MapError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *TableHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := IdentityFromContext(r.Context())
		view, err := h.svc.State(r.Context(), chi.URLParam(r, "table_id"), viewer.ID)
		if err != nil {
			status, code := MapError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *TableHandlers) StartPlaying() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricJoinTotal.Add(1)
		tableID := chi.URLParam(r, "table_id")
		resp, err := h.svc.StartPlaying(r.Context(), tableID, IdentityFromContext(r.Context()))
		if err != nil {
			metricJoinErrors.Add(1)
			status, code := MapError(err)
			log.Info().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("table_id", tableID).
				Str("reason", code).
				Msg("start playing rejected")
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *TableHandlers) StartSpectating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID := chi.URLParam(r, "table_id")
		if err := h.svc.StartSpectating(r.Context(), tableID, IdentityFromContext(r.Context()).ID); err != nil {
			status, code := MapError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "table_id": tableID})
	}
}

// Act always answers with an accepted flag so a client can tell a rejected
// move from a transport failure.
func (h *TableHandlers) Act() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricActionSubmitTotal.Add(1)
		var req lobby.ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricActionSubmitErrors.Add(1)
			writeJSON(w, http.StatusBadRequest, map[string]any{"accepted": false, "reason": "invalid_json"})
			return
		}
		tableID := chi.URLParam(r, "table_id")
		who := IdentityFromContext(r.Context())
		if err := h.svc.Act(r.Context(), tableID, who.ID, req); err != nil {
			metricActionSubmitErrors.Add(1)
			status, code := MapError(err)
			log.Debug().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("table_id", tableID).
				Str("player_id", who.ID).
				Str("action", req.Action).
				Int64("amount", req.Amount).
				Str("reason", code).
				Msg("action rejected")
			writeJSON(w, status, map[string]any{"accepted": false, "reason": code})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
	}
}

func (h *TableHandlers) Wallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Wallet(r.Context(), IdentityFromContext(r.Context()).ID)
		if err != nil {
			status, code := MapError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
