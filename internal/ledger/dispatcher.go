package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type DispatcherConfig struct {
	Workers     int
	Buffer      int
	RetryMax    int
	RetryBase   time.Duration
	CallTimeout time.Duration
}

type job struct {
	Report  Report
	Attempt int
}

// Dispatcher applies reports on background workers so a slow or failing
// bridge never stalls a table. Failed reports are retried with exponential
// backoff; after RetryMax attempts they are logged for the operator.
type Dispatcher struct {
	cfg    DispatcherConfig
	bridge Bridge

	ch     chan job
	retryQ *retryQueue
	done   chan struct{}

	mu      sync.Mutex
	started bool

	// reports submitted but neither applied nor dropped
	outstanding atomic.Int64

	pendingMu sync.Mutex
	pending   map[string]int64
}

func NewDispatcher(bridge Bridge, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		cfg:     cfg,
		bridge:  bridge,
		pending: map[string]int64{},
		ch:      make(chan job, cfg.Buffer),
		done:    make(chan struct{}),
	}
	d.retryQ = newRetryQueue(d.ch, d.done)
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		go d.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(d.done)
	}()
}

// Submit never blocks: when the buffer is full the report goes through the
// retry queue instead.
func (d *Dispatcher) Submit(reports ...Report) {
	for _, r := range reports {
		d.outstanding.Add(1)
		d.track(r, 1)
		select {
		case d.ch <- job{Report: r}:
			metricSettlementQueueLen.Set(int64(len(d.ch)))
		default:
			d.retryQ.Enqueue(job{Report: r}, d.cfg.RetryBase)
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.ch:
			metricSettlementQueueLen.Set(int64(len(d.ch)))
			d.process(ctx, j)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	err := Apply(callCtx, d.bridge, j.Report)
	if err == nil {
		metricSettlementAppliedTotal.Add(1)
		d.outstanding.Add(-1)
		d.track(j.Report, -1)
		return
	}
	metricSettlementFailedTotal.Add(1)
	d.retryOrDrop(j, err)
}

func (d *Dispatcher) retryOrDrop(j job, err error) bool {
	r := j.Report
	if j.Attempt >= d.cfg.RetryMax {
		metricSettlementDroppedTotal.Add(1)
		log.Error().Err(err).
			Str("entry_id", r.EntryID).
			Str("table_id", r.TableID).
			Str("hand_id", r.HandID).
			Str("player_id", r.PlayerID).
			Str("outcome", string(r.Outcome)).
			Int64("delta", r.Delta).
			Int("attempts", j.Attempt+1).
			Msg("settlement dropped")
		d.outstanding.Add(-1)
		d.track(j.Report, -1)
		return false
	}
	j.Attempt++
	metricSettlementRetryTotal.Add(1)
	delay := d.cfg.RetryBase * time.Duration(1<<(j.Attempt-1))
	log.Warn().Err(err).Str("entry_id", r.EntryID).Int("attempt", j.Attempt).Dur("delay", delay).Msg("settlement retry scheduled")
	d.retryQ.Enqueue(j, delay)
	return true
}

// Drain waits until every submitted report has been applied or dropped.
func (d *Dispatcher) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for d.outstanding.Load() > 0 {
		select {
		case <-ctx.Done():
			log.Warn().Int64("outstanding", d.outstanding.Load()).Msg("settlement drain interrupted")
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (d *Dispatcher) track(r Report, sign int64) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	v := d.pending[r.PlayerID] + sign*r.Delta
	if v == 0 {
		delete(d.pending, r.PlayerID)
		return
	}
	d.pending[r.PlayerID] = v
}

// Pending is the sum of playerID's wallet deltas that are submitted but not
// yet applied or dropped.
func (d *Dispatcher) Pending(playerID string) int64 {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	return d.pending[playerID]
}
