package statuspoll

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultInterval = 5 * time.Second

var ErrRunning = errors.New("poller already running")

type FetchFunc func(ctx context.Context) (*Application, error)

// Snapshot is one successful lookup. Seq is the order in which lookups were started.
type Snapshot struct {
	Seq         uint64       `json:"seq"`
	Application *Application `json:"application"`
	At          time.Time    `json:"at"`
}

// Poller calls fetch once immediately and then every Interval until Stop or
// ctx cancellation. Lookups run concurrently, so a slow one may finish after a
// newer one; such stale snapshots are dropped. Failures go to the error handler
// and the schedule continues unchanged. Callbacks never run concurrently with
// each other and may call Stop.
type Poller struct {
	fetch      FetchFunc
	interval   time.Duration
	onSnapshot func(Snapshot)
	onError    func(error)

	cbMu sync.Mutex // serialises callbacks

	mu        sync.Mutex
	cur       *run
	started   uint64
	delivered uint64
	active    int // callbacks in progress
}

// run is the state of one Start..Stop cycle; stopped is guarded by Poller.mu.
type run struct {
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
	stopped  bool
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithErrorHandler(fn func(error)) Option { return func(p *Poller) { p.onError = fn } }

func NewPoller(fetch FetchFunc, onSnapshot func(Snapshot), opts ...Option) *Poller {
	p := &Poller{
		fetch:      fetch,
		interval:   DefaultInterval,
		onSnapshot: onSnapshot,
		onError:    func(error) {},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, loopDone: make(chan struct{})}
	p.cur = r
	go p.loop(ctx, r)
	return nil
}

// Stop cancels the schedule; no callback starts after it returns. Outside a
// callback it also waits for in-flight lookups. From OnSnapshot or OnError it
// returns without waiting, since the caller is one of them.
func (p *Poller) Stop() {
	p.mu.Lock()
	r := p.cur
	if r == nil {
		p.mu.Unlock()
		return
	}
	p.cur = nil
	r.stopped = true
	r.cancel()
	inCallback := p.active > 0
	p.mu.Unlock()

	<-r.loopDone
	if !inCallback {
		r.inflight.Wait()
	}
}

func (p *Poller) loop(ctx context.Context, r *run) {
	defer close(r.loopDone)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, r)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, r)
		}
	}
}

func (p *Poller) tick(ctx context.Context, r *run) {
	p.mu.Lock()
	if r.stopped {
		p.mu.Unlock()
		return
	}
	p.started++
	seq := p.started
	r.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer r.inflight.Done()
		app, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.invoke(r, func() bool { return true }, func() { p.onError(err) })
			return
		}
		s := Snapshot{Seq: seq, Application: app, At: time.Now()}
		p.invoke(r, func() bool {
			if seq <= p.delivered {
				return false
			}
			p.delivered = seq
			return true
		}, func() { p.onSnapshot(s) })
	}()
}

// invoke runs fn outside p.mu when the run is live and accept, checked under
// p.mu, agrees.
func (p *Poller) invoke(r *run, accept func() bool, fn func()) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()

	p.mu.Lock()
	if r.stopped || !accept() {
		p.mu.Unlock()
		return
	}
	p.active++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()
	fn()
}
