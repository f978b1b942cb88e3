package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Store implements ledger.Bridge. Each call inserts a ledger entry keyed by
// (entry_id, kind) first; a duplicate key means a retry of an applied call
// and leaves the player untouched.

// ErrInsufficientBalance rejects a delta that would take a wallet below
// zero. Nothing is written, so the caller can retry or report it.
var ErrInsufficientBalance = errors.New("insufficient_balance")

func (s *Store) AdjustBalance(ctx context.Context, entryID, playerID string, delta int64) error {
	err := s.applyEntry(ctx, entryID, "adjust", playerID, delta,
		`UPDATE players SET balance = balance + $2, updated_at = now() WHERE id = $1 AND balance + $2 >= 0`, delta)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, getErr := s.GetPlayer(ctx, playerID); getErr != nil {
		return err
	}
	return fmt.Errorf("adjust %s by %d: %w", playerID, delta, ErrInsufficientBalance)
}

func (s *Store) RecordWin(ctx context.Context, entryID, playerID string) error {
	return s.recordOutcome(ctx, entryID, "win", playerID)
}

func (s *Store) RecordLoss(ctx context.Context, entryID, playerID string) error {
	return s.recordOutcome(ctx, entryID, "loss", playerID)
}

func (s *Store) RecordDraw(ctx context.Context, entryID, playerID string) error {
	return s.recordOutcome(ctx, entryID, "draw", playerID)
}

var outcomeColumns = map[string]string{"win": "wins", "loss": "losses", "draw": "draws"}

func (s *Store) recordOutcome(ctx context.Context, entryID, kind, playerID string) error {
	col, ok := outcomeColumns[kind]
	if !ok {
		return fmt.Errorf("unknown outcome %q", kind)
	}
	update := fmt.Sprintf(`UPDATE players SET %s = %s + 1, updated_at = now() WHERE id = $1`, col, col)
	return s.applyEntry(ctx, entryID, kind, playerID, 0, update)
}

func (s *Store) applyEntry(ctx context.Context, entryID, kind, playerID string, amount int64, update string, args ...any) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (entry_id, kind, player_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entry_id, kind) DO NOTHING`, entryID, kind, playerID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}
	tag, err = tx.Exec(ctx, update, append([]any{playerID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
