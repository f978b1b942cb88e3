package ledger

import (
	"context"
	"fmt"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Report is the settlement of one player for one hand (or for leaving one).
type Report struct {
	EntryID  string  `json:"entry_id"`
	TableID  string  `json:"table_id"`
	HandID   string  `json:"hand_id"`
	PlayerID string  `json:"player_id"`
	Outcome  Outcome `json:"outcome"`
	Delta    int64   `json:"delta"`
}

// Bridge persists results outside the table. Every call carries the entry
// id of its report; implementations must ignore an id they already applied.
type Bridge interface {
	RecordWin(ctx context.Context, entryID, playerID string) error
	RecordLoss(ctx context.Context, entryID, playerID string) error
	RecordDraw(ctx context.Context, entryID, playerID string) error
	AdjustBalance(ctx context.Context, entryID, playerID string, delta int64) error
}

// Apply pushes one report through the bridge.
func Apply(ctx context.Context, b Bridge, r Report) error {
	if r.Delta != 0 {
		if err := b.AdjustBalance(ctx, r.EntryID, r.PlayerID, r.Delta); err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
	}
	var err error
	switch r.Outcome {
	case OutcomeWin:
		err = b.RecordWin(ctx, r.EntryID, r.PlayerID)
	case OutcomeDraw:
		err = b.RecordDraw(ctx, r.EntryID, r.PlayerID)
	case OutcomeLoss:
		err = b.RecordLoss(ctx, r.EntryID, r.PlayerID)
	default:
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", r.Outcome, err)
	}
	return nil
}
