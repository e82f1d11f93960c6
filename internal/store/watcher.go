package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"firext-backend/internal/model"
)

// Watcher turns the store into snapshot streams. It wakes every subscriber
// when the store reports a local write and on every poll tick, so rows
// written by the physical controller straight into the database are seen too.
// A subscriber only delivers when the content it reads has changed.
type Watcher struct {
	store    Store
	interval time.Duration

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewWatcher creates a watcher polling the store at the given interval.
func NewWatcher(s Store, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		store:    s,
		interval: interval,
		subs:     make(map[chan struct{}]struct{}),
	}
}

// Run fans change signals and poll ticks out to subscribers until ctx ends.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	changes := w.store.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			w.wakeAll()
		case <-ticker.C:
			w.wakeAll()
		}
	}
}

// Notify wakes every subscriber immediately.
func (w *Watcher) Notify() {
	w.wakeAll()
}

func (w *Watcher) wakeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for wake := range w.subs {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) register() chan struct{} {
	wake := make(chan struct{}, 1)
	w.mu.Lock()
	w.subs[wake] = struct{}{}
	w.mu.Unlock()
	return wake
}

func (w *Watcher) unregister(wake chan struct{}) {
	w.mu.Lock()
	delete(w.subs, wake)
	w.mu.Unlock()
}

// SubscribeAll streams the full dock set in the given order. The first
// snapshot is delivered immediately; the channel closes when ctx ends.
func (w *Watcher) SubscribeAll(ctx context.Context, order OrderKey) <-chan Snapshot {
	out := make(chan Snapshot)
	wake := w.register()

	go func() {
		defer close(out)
		defer w.unregister(wake)

		var last uint64
		first := true
		for {
			docks, err := w.store.ListDocks(ctx, order)
			if ctx.Err() != nil {
				return
			}

			var snap Snapshot
			deliver := true
			if err != nil {
				snap.Err = fmt.Errorf("%w: %v", ErrRead, err)
				first = true
			} else {
				sum := fingerprint(docks)
				deliver = first || sum != last
				first, last = false, sum
				snap.Docks = docks
			}

			if deliver {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// SubscribeDock streams a single dock. A missing dock is delivered as a
// DockSnapshot with a nil Dock; the channel closes when ctx ends.
func (w *Watcher) SubscribeDock(ctx context.Context, id string) <-chan DockSnapshot {
	out := make(chan DockSnapshot)
	wake := w.register()

	go func() {
		defer close(out)
		defer w.unregister(wake)

		var last uint64
		first := true
		for {
			dock, err := w.store.GetDock(ctx, id)
			if ctx.Err() != nil {
				return
			}

			var snap DockSnapshot
			deliver := true
			switch {
			case errors.Is(err, ErrNotFound):
				sum := uint64(0)
				deliver = first || sum != last
				first, last = false, sum
			case err != nil:
				snap.Err = fmt.Errorf("%w: %v", ErrRead, err)
				first = true
			default:
				sum := fingerprint([]model.Dock{dock})
				deliver = first || sum != last
				first, last = false, sum
				snap.Dock = &dock
			}

			if deliver {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// fingerprint hashes every field of every dock in order. It only needs to
// change whenever anything a subscriber could see has changed.
func fingerprint(docks []model.Dock) uint64 {
	h := fnv.New64a()
	for _, d := range docks {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%d|%d|%s;",
			d.ID, d.Name, d.Location,
			opt(d.Weight), opt(d.LedNum), opt(d.LedState), optTime(d.ExpiresAt),
			d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano(), optTime(d.LastReweighedAt))
	}
	return h.Sum64()
}

func opt[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func optTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprint(t.UnixNano())
}
