// Package sync implements the stale-while-revalidate engine: cache-first
// reads answered from the store, with background reconciliation against
// the configured provider.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/confsite/agendacache/internal/store"
	"github.com/confsite/agendacache/pkg/agenda"
	"github.com/confsite/agendacache/pkg/provider"
)

// ErrSourceFetch marks a failed fetch from the backing provider. With
// cached data present it is soft (returned alongside the data); with an
// empty cache it is the hard failure surfaced to the consumer.
var ErrSourceFetch = errors.New("source fetch failed")

// State is the lifecycle of the cached agenda resource.
type State string

const (
	StateEmpty      State = "empty"       // no cache, no fetch yet
	StateLoading    State = "loading"     // first fetch in flight, nothing to serve
	StateFresh      State = "fresh"       // cache populated, no revalidation running
	StateStale      State = "stale"       // cache populated, revalidation in flight
	StateStaleError State = "stale_error" // cache populated, last revalidation failed
)

// Result is the observable consumer shape: cached data plus the flags the
// UI needs to render without a spinner. Loading is true only on the very
// first, cache-empty fetch; IsStale is true exactly while a background
// revalidation runs over existing data.
type Result struct {
	Talks      []agenda.Talk
	Loading    bool
	Err        error
	IsStale    bool
	LastSyncAt time.Time
}

var (
	revalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agendacache_revalidations_total",
		Help: "Completed revalidations by outcome (updated, unchanged, error).",
	}, []string{"outcome"})
	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agendacache_last_sync_timestamp_seconds",
		Help: "Unix time of the last successful sync.",
	})
	registerOnce sync.Once
)

// Engine coordinates reads and revalidations over one logical agenda
// resource. Concurrent revalidation requests coalesce into a single fetch.
type Engine struct {
	store    store.Store
	provider provider.Provider
	logger   *slog.Logger
	maxAge   time.Duration

	group singleflight.Group

	mu           sync.Mutex
	state        State
	lastErr      error
	revalidating bool
	subs         map[int]chan Result
	nextSub      int
}

// New creates an engine. maxAge is the freshness threshold beyond which a
// read triggers a background revalidation; zero means 24 hours.
func New(s store.Store, p provider.Provider, logger *slog.Logger, maxAge time.Duration) *Engine {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	registerOnce.Do(func() {
		prometheus.MustRegister(revalidations, lastSyncGauge)
	})
	return &Engine{
		store:    s,
		provider: p,
		logger:   logger,
		maxAge:   maxAge,
		state:    StateEmpty,
		subs:     make(map[int]chan Result),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers a consumer for result updates. The returned cancel
// stops delivery immediately; results completed after cancellation are
// discarded instead of being pushed to a listener that went away.
func (e *Engine) Subscribe() (<-chan Result, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan Result, 8)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Agenda is the cache-first read path. With cached data it returns
// immediately, kicking off a background revalidation when the cache is
// older than the freshness threshold. With an empty cache it performs the
// first load synchronously.
func (e *Engine) Agenda(ctx context.Context, f agenda.Filter) Result {
	count, err := e.store.CountTalks(ctx)
	if err != nil {
		return Result{Err: err}
	}

	if count == 0 {
		return e.firstLoad(ctx, f)
	}

	talks, err := e.store.ListTalks(ctx, f)
	if err != nil {
		return Result{Err: err}
	}

	lastSync := e.lastSyncAt(ctx)
	if time.Since(lastSync) > e.maxAge {
		e.RevalidateAsync()
	}

	e.mu.Lock()
	res := Result{
		Talks:      talks,
		Err:        e.lastErr,
		IsStale:    e.revalidating,
		LastSyncAt: lastSync,
	}
	e.mu.Unlock()
	return res
}

// firstLoad is the cache-empty path: the only one allowed to present a
// loading state to consumers.
func (e *Engine) firstLoad(ctx context.Context, f agenda.Filter) Result {
	e.setState(StateLoading)
	e.publish(Result{Loading: true})

	if err := e.Refresh(ctx); err != nil {
		e.setState(StateEmpty)
		res := Result{Err: err}
		e.publish(res)
		return res
	}

	talks, err := e.store.ListTalks(ctx, f)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Talks: talks, LastSyncAt: e.lastSyncAt(ctx)}
}

// RevalidateAsync starts a background revalidation unless one is already
// in flight, and flags the cache stale for its duration.
func (e *Engine) RevalidateAsync() {
	e.mu.Lock()
	if e.revalidating {
		e.mu.Unlock()
		return
	}
	e.revalidating = true
	e.state = StateStale
	e.mu.Unlock()

	e.publishSnapshot(context.Background(), true, nil)

	go func() {
		// Detached from the read that triggered it: the response already
		// went out, and subscribers are notified through publish.
		err := e.Refresh(context.Background())
		if err != nil {
			e.logger.Warn("background revalidation failed", "error", err)
		}
	}()
}

// Refresh revalidates against the provider: fetch, compare fingerprints,
// and only on change overwrite the agenda tables in one transaction.
// Overlapping calls share a single in-flight fetch.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err, _ := e.group.Do("agenda", func() (any, error) {
		return nil, e.revalidate(ctx)
	})

	e.mu.Lock()
	e.revalidating = false
	e.lastErr = err
	if err != nil {
		if count, cerr := e.store.CountTalks(context.Background()); cerr == nil && count > 0 {
			e.state = StateStaleError
		} else {
			e.state = StateEmpty
		}
	} else {
		e.state = StateFresh
	}
	e.mu.Unlock()

	e.publishSnapshot(context.Background(), false, err)
	return err
}

func (e *Engine) revalidate(ctx context.Context) error {
	stored, err := e.store.GetMeta(ctx, store.MetaSourceVersion)
	if err != nil {
		return err
	}

	snap, err := e.provider.Fetch(ctx, stored)
	if errors.Is(err, provider.ErrNotModified) {
		// Unchanged: leave every table alone, only advance the sync time.
		now := time.Now().UTC()
		if err := e.store.SetMeta(ctx, store.MetaLastSyncAt, now.Format(time.RFC3339)); err != nil {
			return err
		}
		lastSyncGauge.Set(float64(now.Unix()))
		revalidations.WithLabelValues("unchanged").Inc()
		e.logger.Debug("agenda unchanged", "version", stored)
		return nil
	}
	if err != nil {
		revalidations.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}

	if stored != "" && snap.Version == stored {
		now := time.Now().UTC()
		if err := e.store.SetMeta(ctx, store.MetaLastSyncAt, now.Format(time.RFC3339)); err != nil {
			return err
		}
		lastSyncGauge.Set(float64(now.Unix()))
		revalidations.WithLabelValues("unchanged").Inc()
		return nil
	}

	ds, err := agenda.Normalize(snap.Talks)
	if err != nil {
		// Malformed payload aborts the ingestion; the previous cache
		// contents stay authoritative.
		revalidations.WithLabelValues("error").Inc()
		return err
	}

	now := time.Now().UTC()
	if err := e.store.ReplaceAgenda(ctx, ds, snap.Version, now); err != nil {
		revalidations.WithLabelValues("error").Inc()
		return err
	}

	lastSyncGauge.Set(float64(now.Unix()))
	revalidations.WithLabelValues("updated").Inc()
	e.logger.Info("agenda updated",
		"provider", e.provider.Name(),
		"talks", len(ds.Talks),
		"speakers", len(ds.Speakers),
		"version", snap.Version)
	return nil
}

func (e *Engine) lastSyncAt(ctx context.Context) time.Time {
	raw, err := e.store.GetMeta(ctx, store.MetaLastSyncAt)
	if err != nil || raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// publishSnapshot pushes the current cache contents to subscribers.
func (e *Engine) publishSnapshot(ctx context.Context, isStale bool, fetchErr error) {
	talks, err := e.store.ListTalks(ctx, agenda.Filter{})
	if err != nil {
		return
	}
	if fetchErr == nil {
		e.mu.Lock()
		fetchErr = e.lastErr
		e.mu.Unlock()
	}
	e.publish(Result{
		Talks:      talks,
		Err:        fetchErr,
		IsStale:    isStale,
		LastSyncAt: e.lastSyncAt(ctx),
	})
}

func (e *Engine) publish(res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sub := range e.subs {
		select {
		case sub <- res:
		default:
			// Slow consumers drop intermediate updates rather than block
			// the revalidation path.
		}
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
