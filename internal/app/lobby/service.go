package lobby

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"holdem-tables/internal/game"
	"holdem-tables/internal/game/viewmodel"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
)

// Wallets is the persistent side of a player: the wallet a buy-in is drawn
// against and the win/loss counters.
type Wallets interface {
	EnsurePlayer(ctx context.Context, id, name string, initial int64) (store.Player, error)
	GetPlayer(ctx context.Context, id string) (store.Player, error)
}

type Tables interface {
	Get(id string) (*table.Table, error)
	Summaries(ctx context.Context) ([]table.Summary, error)
}

// PendingDeltas reports wallet changes that are settled but not yet written.
type PendingDeltas interface {
	Pending(playerID string) int64
}

// Service is shared by every transport. It resolves tables, performs the
// wallet lookup for buy-ins and forwards the rest to the table actors.
type Service struct {
	wallets       Wallets
	tables        Tables
	maxBuyIn      int64
	initialWallet int64
	pending       PendingDeltas
}

func NewService(wallets Wallets, tables Tables, maxBuyIn, initialWallet int64) *Service {
	return &Service{wallets: wallets, tables: tables, maxBuyIn: maxBuyIn, initialWallet: initialWallet}
}

// WithPending makes buy-ins account for losses still on their way to the
// wallet.
func (s *Service) WithPending(p PendingDeltas) *Service {
	s.pending = p
	return s
}

func (s *Service) Tables(ctx context.Context) (*TablesResponse, error) {
	items, err := s.tables.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	return &TablesResponse{Items: items}, nil
}

// State returns the table as viewerID sees it; an empty viewer gets the
// public snapshot.
func (s *Service) State(ctx context.Context, tableID, viewerID string) (viewmodel.TableStateView, error) {
	t, err := s.tables.Get(tableID)
	if err != nil {
		return viewmodel.TableStateView{}, err
	}
	return t.State(ctx, viewerID)
}

// StartPlaying buys the player in with min(wallet, max buy-in) and seats or
// queues them.
func (s *Service) StartPlaying(ctx context.Context, tableID string, who Identity) (*JoinResponse, error) {
	if strings.TrimSpace(who.ID) == "" {
		return nil, ErrInvalidRequest
	}
	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = who.ID
	}
	t, err := s.tables.Get(tableID)
	if err != nil {
		return nil, err
	}
	p, err := s.wallets.EnsurePlayer(ctx, who.ID, name, s.initialWallet)
	if err != nil {
		return nil, err
	}
	wallet := p.Balance
	if s.pending != nil {
		if d := s.pending.Pending(who.ID); d < 0 {
			wallet += d
		}
	}
	buyIn := min(wallet, s.maxBuyIn)
	if buyIn <= 0 {
		return nil, ErrInsufficientFunds
	}
	res, err := t.Join(ctx, who.ID, name, buyIn)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("table_id", tableID).
		Str("player_id", who.ID).
		Int64("buy_in", buyIn).
		Bool("seated", res.Seated).
		Msg("start_playing")
	return &JoinResponse{TableID: tableID, Seated: res.Seated, Queued: res.Queued, BuyIn: buyIn}, nil
}

// StartSpectating gives up the player's seat or queue place. Someone who was
// only watching already is left alone.
func (s *Service) StartSpectating(ctx context.Context, tableID, playerID string) error {
	if playerID == "" {
		return ErrInvalidRequest
	}
	t, err := s.tables.Get(tableID)
	if err != nil {
		return err
	}
	if err := t.Leave(ctx, playerID); err != nil && !errors.Is(err, game.ErrNotSeated) {
		return err
	}
	return nil
}

func (s *Service) Act(ctx context.Context, tableID, playerID string, req ActionRequest) error {
	if playerID == "" || req.Amount < 0 {
		return ErrInvalidRequest
	}
	action, ok := game.ParseAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if !ok {
		return game.ErrInvalidAction
	}
	if action == game.ActionRaise && req.Amount == 0 {
		return game.ErrInvalidRaise
	}
	t, err := s.tables.Get(tableID)
	if err != nil {
		return err
	}
	return t.Act(ctx, playerID, action, req.Amount)
}

func (s *Service) Watch(ctx context.Context, tableID, viewerID string) (*table.Watcher, error) {
	t, err := s.tables.Get(tableID)
	if err != nil {
		return nil, err
	}
	return t.Watch(ctx, viewerID)
}

func (s *Service) Events(tableID string) (*table.EventBuffer, error) {
	t, err := s.tables.Get(tableID)
	if err != nil {
		return nil, err
	}
	return t.Events(), nil
}

func (s *Service) Wallet(ctx context.Context, playerID string) (*WalletResponse, error) {
	if playerID == "" {
		return nil, ErrInvalidRequest
	}
	p, err := s.wallets.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownPlayer
	}
	if err != nil {
		return nil, err
	}
	return &WalletResponse{
		PlayerID: p.ID,
		Name:     p.Name,
		Balance:  p.Balance,
		Wins:     p.Wins,
		Losses:   p.Losses,
		Draws:    p.Draws,
	}, nil
}
