package lobby

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrUnknownPlayer     = errors.New("unknown_player")
)
