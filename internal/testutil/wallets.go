package testutil

import (
	"context"
	"sync"

	"holdem-tables/internal/store"
)

// MemWallets is an in-memory stand-in for the player side of store.Store.
type MemWallets struct {
	mu      sync.Mutex
	players map[string]store.Player
}

func NewMemWallets(seed ...store.Player) *MemWallets {
	m := &MemWallets{players: map[string]store.Player{}}
	for _, p := range seed {
		m.players[p.ID] = p
	}
	return m
}

func (m *MemWallets) EnsurePlayer(_ context.Context, id, name string, initial int64) (store.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		p = store.Player{ID: id, Balance: initial}
	}
	p.Name = name
	m.players[id] = p
	return p, nil
}

func (m *MemWallets) GetPlayer(_ context.Context, id string) (store.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return store.Player{}, store.ErrNotFound
	}
	return p, nil
}

func (m *MemWallets) Ping(context.Context) error { return nil }

func (m *MemWallets) ListLedgerEntries(context.Context, string, int) ([]store.LedgerEntry, error) {
	return nil, nil
}
