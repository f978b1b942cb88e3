package table

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"holdem-tables/internal/game"
	"holdem-tables/internal/game/viewmodel"
	"holdem-tables/internal/ledger"
)

var (
	ErrTableClosed = errors.New("table_closed")
	ErrTableFault  = errors.New("table_fault")
)

const shuffleRetryDelay = time.Second

// Settler receives settlement reports; it must not block.
type Settler interface {
	Submit(reports ...ledger.Report)
}

// Publisher mirrors public snapshots to an external bus.
type Publisher interface {
	PublishSnapshot(tableID string, view viewmodel.TableStateView)
}

type ShuffleFunc func(ctx context.Context) (*game.Deck, error)

func CryptoShuffle(context.Context) (*game.Deck, error) {
	return game.NewShuffledDeck(rand.Reader)
}

type Options struct {
	Game        game.Config
	TurnTimeout time.Duration
	RevealDelay time.Duration
	Evaluator   game.Evaluator
	Shuffle     ShuffleFunc
	Settler     Settler
	Publisher   Publisher
	Registry    *Registry
	MailboxSize int
	EventBuffer int
}

type Summary struct {
	TableID    string     `json:"table_id"`
	Phase      game.Phase `json:"phase"`
	HandID     string     `json:"hand_id,omitempty"`
	Seated     int        `json:"seated"`
	Waiting    int        `json:"waiting"`
	SeatLimit  int        `json:"seat_limit"`
	SmallBlind int64      `json:"small_blind"`
	BigBlind   int64      `json:"big_blind"`
}

// Table is the actor that owns one game.Engine. Every mutation, timer expiry
// and completed shuffle is a message handled by a single goroutine.
type Table struct {
	id      string
	opts    Options
	eng     *game.Engine
	events  *EventBuffer
	mailbox chan message
	done    chan struct{}
	logger  zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc

	// owned by the run goroutine
	watchers    map[*Watcher]struct{}
	turnTimer   *time.Timer
	armedTurn   uint64
	settleTimer *time.Timer
	settleSeq   uint64
	dealSeq     uint64
	members     map[string]struct{}
}

func New(opts Options) *Table {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 64
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 30 * time.Second
	}
	if opts.RevealDelay < 0 {
		opts.RevealDelay = 0
	}
	if opts.Shuffle == nil {
		opts.Shuffle = CryptoShuffle
	}
	id := opts.Game.TableID
	return &Table{
		id:       id,
		opts:     opts,
		eng:      game.NewEngine(opts.Game, opts.Evaluator),
		events:   NewEventBuffer(id, opts.EventBuffer),
		mailbox:  make(chan message, opts.MailboxSize),
		done:     make(chan struct{}),
		logger:   log.With().Str("table_id", id).Logger(),
		watchers: map[*Watcher]struct{}{},
		members:  map[string]struct{}{},
	}
}

func (t *Table) ID() string { return t.id }

func (t *Table) Events() *EventBuffer { return t.events }

func (t *Table) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		go t.run(ctx)
	})
}

// Close stops the table goroutine and waits for it.
func (t *Table) Close() {
	t.stopOnce.Do(func() {
		if t.cancel == nil {
			close(t.done)
			return
		}
		t.cancel()
		<-t.done
	})
}

func (t *Table) Join(ctx context.Context, playerID, name string, buyIn int64) (JoinResult, error) {
	reply := make(chan joinReply, 1)
	if err := t.send(ctx, joinMsg{player: game.NewPlayer(playerID, name, buyIn), reply: reply}); err != nil {
		return JoinResult{}, err
	}
	select {
	case r := <-reply:
		return r.res, r.err
	case <-t.done:
		return JoinResult{}, ErrTableClosed
	case <-ctx.Done():
		return JoinResult{}, ctx.Err()
	}
}

func (t *Table) Leave(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	if err := t.send(ctx, leaveMsg{playerID: playerID, reply: reply}); err != nil {
		return err
	}
	return t.awaitErr(ctx, reply)
}

// Act submits a betting decision. Illegal actions come back as the engine's
// sentinel errors and leave the table unchanged.
func (t *Table) Act(ctx context.Context, playerID string, action game.ActionType, amount int64) error {
	reply := make(chan error, 1)
	if err := t.send(ctx, actionMsg{playerID: playerID, action: action, amount: amount, reply: reply}); err != nil {
		return err
	}
	return t.awaitErr(ctx, reply)
}

func (t *Table) State(ctx context.Context, viewerID string) (viewmodel.TableStateView, error) {
	reply := make(chan viewmodel.TableStateView, 1)
	if err := t.send(ctx, stateMsg{viewerID: viewerID, reply: reply}); err != nil {
		return viewmodel.TableStateView{}, err
	}
	select {
	case v, ok := <-reply:
		if !ok {
			return v, ErrTableFault
		}
		return v, nil
	case <-t.done:
		return viewmodel.TableStateView{}, ErrTableClosed
	case <-ctx.Done():
		return viewmodel.TableStateView{}, ctx.Err()
	}
}

func (t *Table) Summary(ctx context.Context) (Summary, error) {
	reply := make(chan Summary, 1)
	if err := t.send(ctx, summaryMsg{reply: reply}); err != nil {
		return Summary{}, err
	}
	select {
	case s, ok := <-reply:
		if !ok {
			return s, ErrTableFault
		}
		return s, nil
	case <-t.done:
		return Summary{}, ErrTableClosed
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

func (t *Table) send(ctx context.Context, m message) error {
	select {
	case t.mailbox <- m:
		return nil
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timers and the shuffle goroutine.
func (t *Table) post(m message) {
	select {
	case t.mailbox <- m:
	case <-t.done:
	}
}

func (t *Table) awaitErr(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Table) run(ctx context.Context) {
	defer close(t.done)
	defer t.shutdown()
	t.logger.Info().Int("seat_limit", t.opts.Game.SeatLimit).Msg("table_started")
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-t.mailbox:
			t.handle(ctx, m)
		}
	}
}

func (t *Table) shutdown() {
	t.stopTurnTimer()
	if t.settleTimer != nil {
		t.settleTimer.Stop()
	}
	for w := range t.watchers {
		close(w.ch)
		delete(t.watchers, w)
	}
	t.events.Close()
	if t.opts.Registry != nil {
		for id := range t.members {
			t.opts.Registry.Release(id, t.id)
		}
	}
	t.logger.Info().Msg("table_stopped")
}

func (t *Table) handle(ctx context.Context, m message) {
	defer func() {
		if r := recover(); r != nil {
			metricTablePanicsTotal.Add(1)
			t.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Str("hand_id", t.eng.HandID).
				Bytes("stack", debug.Stack()).
				Msg("table_panic")
			m.fail(ErrTableFault)
		}
	}()

	switch msg := m.(type) {
	case joinMsg:
		res, err := t.join(ctx, msg.player)
		msg.reply <- joinReply{res: res, err: err}
	case leaveMsg:
		err := t.eng.Leave(msg.playerID)
		if err == nil {
			t.logger.Info().Str("player_id", msg.playerID).Str("hand_id", t.eng.HandID).Msg("player_left")
			t.advance(ctx)
		}
		msg.reply <- err
	case actionMsg:
		err := t.eng.Act(msg.playerID, msg.action, msg.amount)
		if err != nil {
			metricActionsRejectedTotal.Add(1)
			t.logger.Debug().Err(err).
				Str("player_id", msg.playerID).
				Str("action", string(msg.action)).
				Int64("amount", msg.amount).
				Msg("action_rejected")
		} else {
			metricActionsAcceptedTotal.Add(1)
			t.logger.Debug().
				Str("player_id", msg.playerID).
				Str("hand_id", t.eng.HandID).
				Str("action", string(msg.action)).
				Int64("amount", msg.amount).
				Msg("action_applied")
			t.advance(ctx)
		}
		msg.reply <- err
	case stateMsg:
		msg.reply <- viewmodel.BuildTableState(t.eng, msg.viewerID, t.opts.TurnTimeout)
	case summaryMsg:
		msg.reply <- t.summary()
	case watchMsg:
		t.watchers[msg.w] = struct{}{}
		msg.w.deliver(viewmodel.BuildTableState(t.eng, msg.w.viewerID, t.opts.TurnTimeout))
		close(msg.reply)
	case unwatchMsg:
		if _, ok := t.watchers[msg.w]; ok {
			delete(t.watchers, msg.w)
			close(msg.w.ch)
		}
	case dealtMsg:
		t.onDealt(ctx, msg)
	case reshuffleMsg:
		if msg.seq == t.dealSeq && t.eng.Phase == game.PhaseDealing {
			t.startShuffle(ctx)
		}
	case turnExpiredMsg:
		if id, ok := t.eng.ExpireTurn(msg.seq); ok {
			metricTurnTimeoutsTotal.Add(1)
			t.logger.Warn().Str("player_id", id).Str("hand_id", t.eng.HandID).Msg("turn_timeout")
			t.advance(ctx)
		}
	case settleMsg:
		t.onSettle(ctx, msg)
	}
}

func (t *Table) join(ctx context.Context, p *game.Player) (JoinResult, error) {
	if reg := t.opts.Registry; reg != nil {
		if err := reg.Claim(p.ID, t.id); err != nil {
			return JoinResult{}, err
		}
		defer func() {
			if !t.eng.Contains(p.ID) {
				reg.Release(p.ID, t.id)
			}
		}()
	}
	seated, err := t.eng.Join(p)
	if err != nil {
		return JoinResult{}, err
	}
	t.logger.Info().Str("player_id", p.ID).Bool("seated", seated).Int64("buy_in", p.Balance).Msg("player_joined")
	t.advance(ctx)
	return JoinResult{Seated: seated, Queued: !seated}, nil
}

// syncMembers releases the registry claim of everyone who left the table
// since the last call.
func (t *Table) syncMembers() {
	current := make(map[string]struct{}, len(t.members))
	for _, p := range t.eng.Seats() {
		current[p.ID] = struct{}{}
	}
	for _, p := range t.eng.Waiting() {
		current[p.ID] = struct{}{}
	}
	if t.opts.Registry != nil {
		for id := range t.members {
			if _, ok := current[id]; !ok {
				t.opts.Registry.Release(id, t.id)
			}
		}
	}
	t.members = current
}

// advance runs the engine's state check and schedules whatever it asks for,
// then re-arms the turn timer and publishes the new state.
func (t *Table) advance(ctx context.Context) {
	switch t.eng.StateCheck() {
	case game.NextShuffle:
		t.startShuffle(ctx)
	case game.NextSettle:
		t.scheduleSettle()
	}
	t.syncTurnTimer()
	t.flush()
}

func (t *Table) startShuffle(ctx context.Context) {
	t.dealSeq++
	seq := t.dealSeq
	shuffle := t.opts.Shuffle
	go func() {
		deck, err := shuffle(ctx)
		t.post(dealtMsg{seq: seq, deck: deck, err: err})
	}()
}

func (t *Table) onDealt(ctx context.Context, msg dealtMsg) {
	if msg.seq != t.dealSeq || t.eng.Phase != game.PhaseDealing {
		return
	}
	if msg.err != nil {
		metricShuffleFailuresTotal.Add(1)
		t.logger.Error().Err(msg.err).Msg("shuffle_failed")
		seq := msg.seq
		time.AfterFunc(shuffleRetryDelay, func() { t.post(reshuffleMsg{seq: seq}) })
		return
	}
	if err := t.eng.DealHand(msg.deck); err != nil {
		t.logger.Error().Err(err).Msg("deal_failed")
		return
	}
	if t.eng.HandInProgress() {
		metricHandsStartedTotal.Add(1)
		t.logger.Info().Str("hand_id", t.eng.HandID).Int("players", len(t.eng.Seats())).Int("dealer", t.eng.DealerPos).Msg("hand_started")
	}
	t.advance(ctx)
}

func (t *Table) scheduleSettle() {
	if t.settleTimer != nil {
		t.settleTimer.Stop()
	}
	t.settleSeq++
	seq := t.settleSeq
	t.settleTimer = time.AfterFunc(t.opts.RevealDelay, func() { t.post(settleMsg{seq: seq}) })
}

func (t *Table) onSettle(ctx context.Context, msg settleMsg) {
	if msg.seq != t.settleSeq {
		return
	}
	handID := t.eng.HandID
	if err := t.eng.Settle(); err != nil {
		if errors.Is(err, game.ErrNoShowdown) {
			return
		}
		metricSettleFailuresTotal.Add(1)
		t.logger.Error().Err(err).Str("hand_id", handID).Msg("settle_failed")
		t.scheduleSettle()
		t.flush()
		return
	}
	metricHandsSettledTotal.Add(1)
	t.logger.Info().Str("hand_id", handID).Msg("hand_settled")
	t.advance(ctx)
}

func (t *Table) syncTurnTimer() {
	if t.eng.CurrentPlayer() == nil {
		t.stopTurnTimer()
		return
	}
	seq := t.eng.TurnSeq()
	if seq == t.armedTurn && t.turnTimer != nil {
		return
	}
	t.stopTurnTimer()
	t.armedTurn = seq
	t.turnTimer = time.AfterFunc(t.opts.TurnTimeout, func() { t.post(turnExpiredMsg{seq: seq}) })
}

func (t *Table) stopTurnTimer() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	t.armedTurn = 0
}

func (t *Table) flush() {
	t.syncMembers()
	for _, ev := range t.eng.TakeEvents() {
		t.events.Append("table_event", map[string]string{"message": ev})
	}
	if reports := t.eng.TakeReports(); len(reports) > 0 {
		for _, r := range reports {
			t.logger.Info().
				Str("hand_id", r.HandID).
				Str("player_id", r.PlayerID).
				Str("outcome", string(r.Outcome)).
				Int64("delta", r.Delta).
				Msg("settlement_reported")
		}
		if t.opts.Settler != nil {
			t.opts.Settler.Submit(reports...)
		}
	}

	public := viewmodel.BuildTableState(t.eng, viewmodel.PublicViewer, t.opts.TurnTimeout)
	t.events.Append("table_snapshot", public)
	if t.opts.Publisher != nil {
		t.opts.Publisher.PublishSnapshot(t.id, public)
	}
	for w := range t.watchers {
		if w.viewerID == viewmodel.PublicViewer {
			w.deliver(public)
			continue
		}
		w.deliver(viewmodel.BuildTableState(t.eng, w.viewerID, t.opts.TurnTimeout))
	}
}

func (t *Table) summary() Summary {
	cfg := t.eng.Config()
	return Summary{
		TableID:    t.id,
		Phase:      t.eng.Phase,
		HandID:     t.eng.HandID,
		Seated:     len(t.eng.Seats()),
		Waiting:    len(t.eng.Waiting()),
		SeatLimit:  cfg.SeatLimit,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
	}
}
