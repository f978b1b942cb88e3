package table

import (
	"context"
	"errors"
	"fmt"

	"holdem-tables/internal/config"
	"holdem-tables/internal/game"
)

var ErrTableNotFound = errors.New("table_not_found")

// Manager holds the fixed set of tables created at start. The set never
// changes afterwards, so lookups need no lock.
type Manager struct {
	tables map[string]*Table
	order  []*Table
}

// NewManager builds cfg.Count tables named <prefix><n>. Per-table settings
// in base.Game are overwritten from cfg. All tables share one Registry so an
// identity sits at one table at a time.
func NewManager(cfg config.TableConfig, base Options) *Manager {
	m := &Manager{tables: make(map[string]*Table, cfg.Count)}
	if base.Registry == nil {
		base.Registry = NewRegistry()
	}
	for i := 1; i <= cfg.Count; i++ {
		opts := base
		opts.Game = game.Config{
			TableID:    fmt.Sprintf("%s%d", cfg.IDPrefix, i),
			SeatLimit:  cfg.SeatLimit,
			SmallBlind: cfg.SmallBlind,
			BigBlind:   cfg.BigBlind,
		}
		opts.TurnTimeout = cfg.TurnTimeout
		opts.RevealDelay = cfg.RevealDelay
		t := New(opts)
		m.tables[t.ID()] = t
		m.order = append(m.order, t)
	}
	return m
}

func (m *Manager) Start(ctx context.Context) {
	for _, t := range m.order {
		t.Start(ctx)
	}
}

func (m *Manager) Close() {
	for _, t := range m.order {
		t.Close()
	}
}

func (m *Manager) Get(id string) (*Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

func (m *Manager) List() []*Table {
	return append([]*Table(nil), m.order...)
}

func (m *Manager) Summaries(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(m.order))
	for _, t := range m.order {
		s, err := t.Summary(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.ID(), err)
		}
		out = append(out, s)
	}
	return out, nil
}
