// Package session tracks dock detail views. While a view is open the dock
// has a check record; the record is removed on every way out of the view.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"firext-backend/internal/model"
	"firext-backend/internal/policy"
	"firext-backend/internal/store"
)

// ErrDockNotFound ends a session whose dock does not exist (or was deleted).
var ErrDockNotFound = errors.New("dock not found")

// cleanupTimeout bounds the check-record delete issued when a view closes.
const cleanupTimeout = 5 * time.Second

// Store is the subset of store.Store a Tracker writes to.
type Store interface {
	PutCheck(ctx context.Context, rec model.CheckRecord) error
	DeleteCheck(ctx context.Context, dockID string) error
	UpdateDockFields(ctx context.Context, id string, fields map[string]any) error
	ServerTime() time.Time
}

// Source streams a single dock.
type Source interface {
	SubscribeDock(ctx context.Context, id string) <-chan store.DockSnapshot
}

// View is what a detail viewer is shown on every update.
type View struct {
	Dock   model.Dock    `json:"dock"`
	Weight float64       `json:"weight"`
	Status policy.Status `json:"status"`
	LedOn  bool          `json:"led_on"`
}

// Tracker opens detail sessions.
type Tracker struct {
	store  Store
	source Source

	active sync.WaitGroup

	mu   sync.Mutex
	refs map[string]int // open sessions per dock
}

// NewTracker creates a Tracker.
func NewTracker(s Store, src Source) *Tracker {
	return &Tracker{store: s, source: src, refs: make(map[string]int)}
}

// Watch runs a detail session for dockID, calling fn on every change of the
// dock, until ctx is cancelled, the dock disappears or reading it fails.
// The check record is deleted when the last session open on the dock
// returns, whatever the reason.
func (t *Tracker) Watch(ctx context.Context, dockID string, fn func(View)) error {
	t.active.Add(1)
	defer t.active.Done()
	t.acquire(dockID)
	defer t.release(dockID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stamped   bool
		lastCheck *model.CheckRecord
	)
	for snap := range t.source.SubscribeDock(ctx, dockID) {
		if snap.Err != nil {
			log.Printf("Error reading dock %s: %v", dockID, snap.Err)
			return snap.Err
		}
		if snap.Dock == nil {
			return ErrDockNotFound
		}

		weight := policy.NormalizeWeight(snap.Dock.Weight)
		status := policy.StatusFor(weight)

		rec := model.CheckRecord{DockID: dockID, Status: string(status), Weight: weight}
		if lastCheck == nil || *lastCheck != rec {
			if err := t.store.PutCheck(ctx, rec); err != nil {
				log.Printf("Error setting check record for dock %s: %v", dockID, err)
			} else {
				lastCheck = &rec
				log.Printf("Dock %s status set to %s in check records.", dockID, status)
			}
		}

		if !stamped {
			stamped = true
			if err := t.store.UpdateDockFields(ctx, dockID, map[string]any{
				"last_reweighed_at": t.store.ServerTime(),
			}); err != nil {
				log.Printf("Error updating last_reweighed_at for dock %s: %v", dockID, err)
			}
		}

		fn(View{
			Dock:   *snap.Dock,
			Weight: weight,
			Status: status,
			LedOn:  policy.LedFor(weight),
		})
	}
	return fmt.Errorf("detail session for dock %s closed: %w", dockID, context.Cause(ctx))
}

func (t *Tracker) acquire(dockID string) {
	t.mu.Lock()
	t.refs[dockID]++
	t.mu.Unlock()
}

// release ends one session on dockID. The last one out deletes the check
// record, with a context of its own so that a cancelled viewer context
// cannot skip the cleanup. The lock is held across the delete so a session
// opening meanwhile writes its record after it.
func (t *Tracker) release(dockID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs[dockID]--; t.refs[dockID] > 0 {
		return
	}
	delete(t.refs, dockID)

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := t.store.DeleteCheck(ctx, dockID); err != nil {
		log.Printf("Error removing check record for dock %s: %v", dockID, err)
		return
	}
	log.Printf("Dock %s removed from check records.", dockID)
}

// Wait blocks until every open session has returned and released its
// check record.
func (t *Tracker) Wait() {
	t.active.Wait()
}
