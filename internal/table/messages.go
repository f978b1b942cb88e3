package table

import (
	"holdem-tables/internal/game"
	"holdem-tables/internal/game/viewmodel"
)

// message is anything the table goroutine consumes. fail answers the sender
// when handling panics.
type message interface {
	fail(err error)
}

type JoinResult struct {
	Seated bool `json:"seated"`
	Queued bool `json:"queued"`
}

type joinMsg struct {
	player *game.Player
	reply  chan joinReply
}

type joinReply struct {
	res JoinResult
	err error
}

func (m joinMsg) fail(err error) {
	select {
	case m.reply <- joinReply{err: err}:
	default:
	}
}

type leaveMsg struct {
	playerID string
	reply    chan error
}

func (m leaveMsg) fail(err error) { replyErr(m.reply, err) }

type actionMsg struct {
	playerID string
	action   game.ActionType
	amount   int64
	reply    chan error
}

func (m actionMsg) fail(err error) { replyErr(m.reply, err) }

func replyErr(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}

type stateMsg struct {
	viewerID string
	reply    chan viewmodel.TableStateView
}

func (m stateMsg) fail(error) { close(m.reply) }

type summaryMsg struct {
	reply chan Summary
}

func (m summaryMsg) fail(error) { close(m.reply) }

type watchMsg struct {
	w     *Watcher
	reply chan struct{}
}

func (m watchMsg) fail(error) { close(m.reply) }

type unwatchMsg struct {
	w *Watcher
}

func (unwatchMsg) fail(error) {}

type dealtMsg struct {
	seq  uint64
	deck *game.Deck
	err  error
}

func (dealtMsg) fail(error) {}

type reshuffleMsg struct {
	seq uint64
}

func (reshuffleMsg) fail(error) {}

type turnExpiredMsg struct {
	seq uint64
}

func (turnExpiredMsg) fail(error) {}

type settleMsg struct {
	seq uint64
}

func (settleMsg) fail(error) {}
