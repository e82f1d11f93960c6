// Package reconciler keeps each dock's stored led_state equal to the LED
// state its weight calls for, and reports LED transitions and expiry
// warnings as events.
package reconciler

import (
	"context"
	"log"
	"sync"
	"time"

	"firext-backend/internal/model"
	"firext-backend/internal/policy"
)

// ExpiryWarningDays is the exact number of days left that triggers a warning.
const ExpiryWarningDays = 5

// correction is a led_state write already issued. A mismatching record
// newer than seen was written after the correction and is corrected again.
type correction struct {
	value bool
	seen  time.Time
}

// FieldWriter merges named fields into a dock record.
type FieldWriter interface {
	UpdateDockFields(ctx context.Context, id string, fields map[string]any) error
}

// Reconciler is the only writer of led_state outside of dock create/update.
// A single Reconciler must be shared across observations so that its event
// identity survives between snapshots.
type Reconciler struct {
	writer FieldWriter
	loc    *time.Location
	now    func() time.Time

	mu sync.Mutex
	// ledOn is the LED state last reported for each dock.
	ledOn map[string]bool
	// pending holds the correction issued for each dock and the updated_at
	// of the record it was issued against.
	pending map[string]correction
	// warnedOn is the local date an expiry warning last fired for each dock.
	warnedOn map[string]string

	writes sync.WaitGroup
}

// New creates a Reconciler that writes through w and evaluates expiry dates
// in loc.
func New(w FieldWriter, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{
		writer:   w,
		loc:      loc,
		now:      time.Now,
		ledOn:    make(map[string]bool),
		pending:  make(map[string]correction),
		warnedOn: make(map[string]string),
	}
}

// Reconcile evaluates a full snapshot. Corrective writes are dispatched in
// the background and never block evaluation of the remaining docks.
func (r *Reconciler) Reconcile(ctx context.Context, docks []model.Dock) []Event {
	now := r.now()
	today := now.In(r.loc).Format("2006-01-02")

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(docks))
	var events []Event
	for _, d := range docks {
		seen[d.ID] = struct{}{}
		events = append(events, r.reconcileDock(ctx, d, now, today)...)
	}
	r.forgetMissing(seen)
	return events
}

func (r *Reconciler) reconcileDock(ctx context.Context, d model.Dock, now time.Time, today string) []Event {
	weight := policy.NormalizeWeight(d.Weight)
	correct := policy.LedFor(weight)
	stored := d.LedState != nil && *d.LedState

	base := Event{
		DockID:   d.ID,
		Name:     d.Name,
		Location: d.Location,
		LedNum:   d.LedNum,
		Weight:   weight,
		LedOn:    correct,
	}

	var events []Event

	if stored == correct {
		delete(r.pending, d.ID)
	} else if p, ok := r.pending[d.ID]; !ok || p.value != correct || d.UpdatedAt.After(p.seen) {
		r.pending[d.ID] = correction{value: correct, seen: d.UpdatedAt}
		r.correct(ctx, d.ID, correct, weight)

		ev := base
		ev.Kind, ev.Key = EventLedMismatch, mismatchKey(d.ID)
		events = append(events, ev)
	}

	prior, known := r.ledOn[d.ID]
	if !known {
		prior = stored
	}
	r.ledOn[d.ID] = correct
	if prior != correct {
		ev := base
		if correct {
			ev.Kind, ev.Key = EventLeakDetected, leakKey(d.ID)
		} else {
			ev.Kind, ev.Key = EventWeightRestored, restoreKey(d.ID)
		}
		events = append(events, ev)
	}

	if d.ExpiresAt != nil {
		days := policy.DaysUntil(*d.ExpiresAt, now, r.loc)
		if days == ExpiryWarningDays && r.warnedOn[d.ID] != today {
			r.warnedOn[d.ID] = today
			ev := base
			ev.Kind, ev.Key = EventExpiryWarning, expiryKey(d.ID)
			ev.DaysLeft = &days
			events = append(events, ev)
		}
	}

	return events
}

// correct writes led_state for one dock in the background. A failure is
// logged and the pending marker dropped so the next snapshot tries again.
func (r *Reconciler) correct(ctx context.Context, id string, ledOn bool, weight float64) {
	log.Printf("Correcting LED state for dock %s to %t (weight=%.2f)", id, ledOn, weight)

	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		err := r.writer.UpdateDockFields(ctx, id, map[string]any{"led_state": ledOn})
		if err == nil {
			return
		}
		log.Printf("Failed to update LED state for dock %s: %v", id, err)

		r.mu.Lock()
		if p, ok := r.pending[id]; ok && p.value == ledOn {
			delete(r.pending, id)
		}
		r.mu.Unlock()
	}()
}

func (r *Reconciler) forgetMissing(seen map[string]struct{}) {
	for id := range r.ledOn {
		if _, ok := seen[id]; !ok {
			delete(r.ledOn, id)
			delete(r.pending, id)
			delete(r.warnedOn, id)
		}
	}
	for id := range r.pending {
		if _, ok := seen[id]; !ok {
			delete(r.pending, id)
		}
	}
}

// Wait blocks until every corrective write dispatched so far has finished.
func (r *Reconciler) Wait() {
	r.writes.Wait()
}
