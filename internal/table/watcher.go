package table

import (
	"context"
	"sync"

	"holdem-tables/internal/game/viewmodel"
)

// Watcher receives the viewer's snapshot after every state change. Only the
// latest snapshot is kept; C is closed when the watcher or the table closes.
type Watcher struct {
	C        <-chan viewmodel.TableStateView
	ch       chan viewmodel.TableStateView
	viewerID string
	t        *Table
	once     sync.Once
}

// Watch attaches a viewer. An empty viewerID watches as the public.
func (t *Table) Watch(ctx context.Context, viewerID string) (*Watcher, error) {
	ch := make(chan viewmodel.TableStateView, 1)
	w := &Watcher{C: ch, ch: ch, viewerID: viewerID, t: t}
	reply := make(chan struct{})
	if err := t.send(ctx, watchMsg{w: w, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case <-reply:
		return w, nil
	case <-t.done:
		return nil, ErrTableClosed
	case <-ctx.Done():
		go w.Close()
		return nil, ctx.Err()
	}
}

func (w *Watcher) Close() {
	w.once.Do(func() { w.t.post(unwatchMsg{w: w}) })
}

// deliver replaces any unread snapshot with v. Called only by the table
// goroutine.
func (w *Watcher) deliver(v viewmodel.TableStateView) {
	select {
	case w.ch <- v:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- v:
	default:
	}
}
