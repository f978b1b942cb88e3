package httptransport

import (
	"errors"
	"net/http"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/game"
	"holdem-tables/internal/table"
)

// MapError turns a lobby, table or engine error into a status and a stable
// error code for clients.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, lobby.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, lobby.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, lobby.ErrUnknownPlayer):
		return http.StatusNotFound, "unknown_player"
	case errors.Is(err, table.ErrTableNotFound):
		return http.StatusNotFound, "table_not_found"
	case errors.Is(err, table.ErrTableClosed):
		return http.StatusGone, "table_closed"
	case errors.Is(err, table.ErrSeatedElsewhere):
		return http.StatusConflict, "seated_elsewhere"
	case errors.Is(err, table.ErrTableFault):
		return http.StatusInternalServerError, "table_fault"
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusBadRequest, "not_your_turn"
	case errors.Is(err, game.ErrInvalidAction):
		return http.StatusBadRequest, "invalid_action"
	case errors.Is(err, game.ErrInvalidRaise):
		return http.StatusBadRequest, "invalid_raise"
	case errors.Is(err, game.ErrNotSeated):
		return http.StatusForbidden, "not_seated"
	case errors.Is(err, game.ErrDealingInProgress):
		return http.StatusConflict, "dealing_in_progress"
	case errors.Is(err, game.ErrNoHandInProgress):
		return http.StatusConflict, "no_hand_in_progress"
	case errors.Is(err, game.ErrAlreadyJoined):
		return http.StatusConflict, "already_joined"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
