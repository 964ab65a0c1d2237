// Package poller drives the periodic refresh of one household's collection
// state. A Poller owns its state: observers read the last completed state
// through State and never wait on a refresh in progress.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"binday/internal/models"
)

// Phase is the poller's position in its startup state machine.
type Phase int

const (
	Initializing Phase = iota
	StartupFastPoll
	SteadyPoll
)

func (p Phase) String() string {
	switch p {
	case StartupFastPoll:
		return "startup_fast_poll"
	case SteadyPoll:
		return "steady_poll"
	default:
		return "initializing"
	}
}

// Refresher is implemented by cache.CachedClient.
type Refresher interface {
	Refresh(ctx context.Context, premisesID string, prev models.CollectionState) models.Outcome
	Initial(premisesID string) (models.CollectionState, bool)
}

type Intervals struct {
	Fast   time.Duration
	Medium time.Duration
	Long   time.Duration
}

type Poller struct {
	premisesID string
	refresher  Refresher
	intervals  Intervals
	log        *slog.Logger

	mu          sync.RWMutex
	state       models.CollectionState
	phase       Phase
	steadyTicks int
	lastOutcome models.OutcomeKind
	lastRefresh time.Time
	initialized bool
	initOnce    sync.Once

	subMu   sync.Mutex
	subs    map[int]func(models.CollectionState)
	nextSub int
}

func New(premisesID string, refresher Refresher, intervals Intervals, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		premisesID: premisesID,
		refresher:  refresher,
		intervals:  intervals,
		log:        log.With("premises_id", premisesID),
		state:      models.AwaitingState(premisesID),
		subs:       make(map[int]func(models.CollectionState)),
	}
}

// Init loads the cached state, or runs a first synchronous refresh when no
// cache exists. It is safe to call more than once; only the first call acts.
func (p *Poller) Init(ctx context.Context) {
	p.initOnce.Do(func() {
		if state, ok := p.refresher.Initial(p.premisesID); ok {
			p.log.Info("loaded cached collection data", "last_modified", state.LastModified)
			p.replace(state)
		} else {
			p.log.Info("no cached data, running first refresh")
			p.Tick(ctx)
		}

		p.mu.Lock()
		p.initialized = true
		if p.phase == Initializing {
			p.advance(true)
		}
		p.mu.Unlock()
	})
}

// Run polls until ctx is cancelled. Failures never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.Init(ctx)

	timer := time.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("poller stopped")
			return nil
		case <-timer.C:
			p.Tick(ctx)
			timer.Reset(p.Interval())
		}
	}
}

// Tick runs one refresh and applies its outcome.
func (p *Poller) Tick(ctx context.Context) models.Outcome {
	out := p.refresher.Refresh(ctx, p.premisesID, p.State())

	switch out.Kind {
	case models.Fresh:
		p.log.Debug("refresh complete", "outcome", out.Kind)
	case models.NotModified:
		p.log.Debug("refresh skipped", "outcome", out.Kind)
	default:
		p.log.Warn("refresh failed, serving last known data", "outcome", out.Kind, "err", out.Err)
	}

	if out.Kind != models.NotModified {
		p.replace(out.State)
	}

	p.mu.Lock()
	p.lastOutcome = out.Kind
	p.lastRefresh = time.Now()
	if p.initialized {
		p.advance(out.Kind == models.Fresh || out.Kind == models.NotModified)
	}
	p.mu.Unlock()

	return out
}

// advance moves the state machine after a tick. Only successful cycles
// count towards the long interval. Caller holds mu.
func (p *Poller) advance(succeeded bool) {
	switch p.phase {
	case Initializing, StartupFastPoll:
		if p.state.HasSentinels() {
			p.phase = StartupFastPoll
			return
		}
		p.phase = SteadyPoll
		p.steadyTicks = 0
		p.log.Info("collection data available, switching to steady polling")
	case SteadyPoll:
		if succeeded {
			p.steadyTicks++
		}
	}
}

// Interval is the delay before the next tick.
func (p *Poller) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case p.phase != SteadyPoll:
		return p.intervals.Fast
	case p.steadyTicks == 0:
		return p.intervals.Medium
	default:
		return p.intervals.Long
	}
}

func (p *Poller) Phase() Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phase
}

// State returns the last completed collection state.
func (p *Poller) State() models.CollectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastOutcome reports the kind and time of the most recent tick.
func (p *Poller) LastOutcome() (models.OutcomeKind, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastOutcome, p.lastRefresh
}

// Subscribe registers fn to be called with every new state. The returned
// function removes the subscription.
func (p *Poller) Subscribe(fn func(models.CollectionState)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Poller) replace(state models.CollectionState) {
	p.mu.Lock()
	changed := !sameState(p.state, state)
	p.state = state
	p.mu.Unlock()

	if !changed {
		return
	}

	p.subMu.Lock()
	fns := make([]func(models.CollectionState), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func sameState(a, b models.CollectionState) bool {
	if a.LastModified != b.LastModified || len(a.Dates) != len(b.Dates) {
		return false
	}
	for c, av := range a.Dates {
		bv, ok := b.Dates[c]
		if !ok || av.Kind != bv.Kind || !av.Date.Equal(bv.Date) {
			return false
		}
	}
	return true
}
