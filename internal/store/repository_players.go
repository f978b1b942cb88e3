package store

import "context"

const playerColumns = `id, name, balance, wins, losses, draws, created_at, updated_at`

// EnsurePlayer creates the player with the initial wallet on first contact
// and refreshes the display name otherwise.
func (s *Store) EnsurePlayer(ctx context.Context, id, name string, initial int64) (Player, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO players (id, name, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING `+playerColumns, id, name, initial)
	return scanPlayer(row)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (Player, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	return p, mapNotFound(err)
}

func (s *Store) GetWallet(ctx context.Context, id string) (int64, error) {
	var bal int64
	err := s.Pool.QueryRow(ctx, `SELECT balance FROM players WHERE id = $1`, id).Scan(&bal)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return bal, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, playerID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT entry_id, kind, player_id, amount, created_at
		FROM ledger_entries
		WHERE player_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.EntryID, &e.Kind, &e.PlayerID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.Name, &p.Balance, &p.Wins, &p.Losses, &p.Draws, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
