// Package registry owns one poller per registered household. Pollers are
// created explicitly at registration and torn down, together with their
// cache file, at deregistration.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"binday/internal/models"
	"binday/internal/poller"
)

// Resolver is implemented by setup.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, postcode, house string) (models.PremisesRecord, error)
}

// CacheRemover is implemented by cache.Store.
type CacheRemover interface {
	Delete(premisesID string) error
}

// Household is a registration together with its current poller view.
type Household struct {
	Registration Registration
	State        models.CollectionState
	Phase        poller.Phase
}

type handle struct {
	reg    Registration
	poller *poller.Poller
	cancel context.CancelFunc
	done   chan struct{}
}

type Registry struct {
	store     *Store
	resolver  Resolver
	refresher poller.Refresher
	cache     CacheRemover
	intervals poller.Intervals
	syncEvery time.Duration
	log       *slog.Logger

	// opMu serializes Sync, Register and Unregister.
	opMu sync.Mutex

	mu      sync.RWMutex
	pollers map[string]*handle
	group   *errgroup.Group
	runCtx  context.Context
}

// New creates an empty registry. While Run is active the registry re-reads
// the store every syncEvery so registrations added or removed by other
// processes take effect; zero disables this.
func New(store *Store, resolver Resolver, refresher poller.Refresher, cache CacheRemover, intervals poller.Intervals, syncEvery time.Duration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		store:     store,
		resolver:  resolver,
		refresher: refresher,
		cache:     cache,
		intervals: intervals,
		syncEvery: syncEvery,
		log:       log,
		pollers:   make(map[string]*handle),
	}
}

// Open creates a poller for every stored registration. Each poller loads
// its cache or runs its first refresh before Open returns.
func (r *Registry) Open(ctx context.Context) error {
	if err := r.Sync(ctx); err != nil {
		return err
	}
	r.mu.RLock()
	n := len(r.pollers)
	r.mu.RUnlock()
	r.log.Info("registry opened", "households", n)
	return nil
}

// Sync reconciles the pollers with the stored registrations. Pollers whose
// registration is gone are stopped and their cache file removed; stored
// registrations without a poller get one.
func (r *Registry) Sync(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	regs, err := r.store.List(ctx)
	if err != nil {
		return err
	}

	stored := make(map[string]bool, len(regs))
	var (
		added   []Registration
		removed []string
	)
	r.mu.RLock()
	for _, reg := range regs {
		stored[reg.PremisesID] = true
		if _, ok := r.pollers[reg.PremisesID]; !ok {
			added = append(added, reg)
		}
	}
	for id := range r.pollers {
		if !stored[id] {
			removed = append(removed, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range removed {
		r.stop(id)
		r.deleteCache(id)
		r.log.Info("registration removed elsewhere, poller stopped", "premises_id", id)
	}
	return r.start(ctx, added)
}

// start initializes pollers for regs in parallel and launches them.
// Caller holds opMu.
func (r *Registry) start(ctx context.Context, regs []Registration) error {
	if len(regs) == 0 {
		return nil
	}

	handles := make([]*handle, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, reg := range regs {
		g.Go(func() error {
			handles[i] = r.newHandle(gctx, reg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range handles {
		r.pollers[h.reg.PremisesID] = h
		r.launch(h)
	}
	return nil
}

// stop removes premisesID's poller and waits for its loop to exit.
func (r *Registry) stop(premisesID string) {
	r.mu.Lock()
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	if h, ok := r.pollers[premisesID]; ok {
		cancel, done = h.cancel, h.done
		delete(r.pollers, premisesID)
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Registry) deleteCache(premisesID string) {
	if err := r.cache.Delete(premisesID); err != nil {
		r.log.Warn("failed to delete cache", "premises_id", premisesID, "err", err)
	}
}

// Register resolves postcode and house, stores the registration and starts
// polling for it. Resolution errors are returned as-is so callers can show
// them to the user.
func (r *Registry) Register(ctx context.Context, name, postcode, house string) (Registration, error) {
	rec, err := r.resolver.Resolve(ctx, postcode, house)
	if err != nil {
		return Registration{}, err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.RLock()
	_, exists := r.pollers[rec.PremisesID]
	r.mu.RUnlock()
	if exists {
		return Registration{}, fmt.Errorf("%s: %w", rec.PremisesID, ErrAlreadyRegistered)
	}

	reg, err := r.store.Add(ctx, Registration{
		Name:       name,
		Postcode:   rec.Postcode,
		House:      house,
		PremisesID: rec.PremisesID,
	})
	if err != nil {
		return Registration{}, err
	}

	h := r.newHandle(ctx, reg)

	r.mu.Lock()
	r.pollers[reg.PremisesID] = h
	r.launch(h)
	r.mu.Unlock()

	r.log.Info("household registered", "name", reg.Name, "premises_id", reg.PremisesID)
	return reg, nil
}

// Unregister stops the household's poller and removes its cache file and
// stored registration.
func (r *Registry) Unregister(ctx context.Context, premisesID string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.stop(premisesID)
	r.deleteCache(premisesID)
	if err := r.store.Remove(ctx, premisesID); err != nil {
		return err
	}

	r.log.Info("household unregistered", "premises_id", premisesID)
	return nil
}

// Run supervises every poller until ctx is cancelled. Households registered
// while Run is active start polling immediately.
func (r *Registry) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	r.mu.Lock()
	r.group, r.runCtx = g, gctx
	for _, h := range r.pollers {
		r.launch(h)
	}
	r.mu.Unlock()

	g.Go(func() error {
		r.syncLoop(gctx)
		return nil
	})
	err := g.Wait()

	r.mu.Lock()
	r.group, r.runCtx = nil, nil
	for _, h := range r.pollers {
		h.cancel, h.done = nil, nil
	}
	r.mu.Unlock()
	return err
}

// syncLoop runs Sync every syncEvery until ctx is cancelled.
func (r *Registry) syncLoop(ctx context.Context) {
	if r.syncEvery <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.syncEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("registry sync failed", "err", err)
			}
		}
	}
}

// launch starts h's poll loop if Run is active. Caller holds mu.
func (r *Registry) launch(h *handle) {
	if r.group == nil || h.cancel != nil {
		return
	}
	pctx, cancel := context.WithCancel(r.runCtx)
	h.cancel = cancel
	h.done = make(chan struct{})
	done := h.done
	r.group.Go(func() error {
		defer close(done)
		return h.poller.Run(pctx)
	})
}

func (r *Registry) newHandle(ctx context.Context, reg Registration) *handle {
	p := poller.New(reg.PremisesID, r.refresher, r.intervals, r.log)
	p.Init(ctx)
	return &handle{reg: reg, poller: p}
}

// Poller returns the poller for premisesID.
func (r *Registry) Poller(premisesID string) (*poller.Poller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.pollers[premisesID]
	if !ok {
		return nil, false
	}
	return h.poller, true
}

// Get returns one household.
func (r *Registry) Get(premisesID string) (Household, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.pollers[premisesID]
	if !ok {
		return Household{}, false
	}
	return householdOf(h), true
}

// Households lists every household ordered by registration time.
func (r *Registry) Households() []Household {
	r.mu.RLock()
	out := make([]Household, 0, len(r.pollers))
	for _, h := range r.pollers {
		out = append(out, householdOf(h))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Registration.CreatedAt.Before(out[j].Registration.CreatedAt)
	})
	return out
}

func householdOf(h *handle) Household {
	return Household{
		Registration: h.reg,
		State:        h.poller.State(),
		Phase:        h.poller.Phase(),
	}
}
