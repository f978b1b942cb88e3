package lobby

import "holdem-tables/internal/table"

type Identity struct {
	ID   string
	Name string
}

type TablesResponse struct {
	Items []table.Summary `json:"items"`
}

type JoinResponse struct {
	TableID string `json:"table_id"`
	Seated  bool   `json:"seated"`
	Queued  bool   `json:"queued"`
	BuyIn   int64  `json:"buy_in"`
}

type ActionRequest struct {
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
}

type WalletResponse struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}
