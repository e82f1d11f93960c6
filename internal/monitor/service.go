// Package monitor drives the dashboard: every snapshot of the dock set is
// reconciled, ranked and pushed to connected clients.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"firext-backend/internal/hub"
	"firext-backend/internal/model"
	"firext-backend/internal/ranking"
	"firext-backend/internal/reconciler"
	"firext-backend/internal/store"
)

// Source streams the full dock set.
type Source interface {
	SubscribeAll(ctx context.Context, order store.OrderKey) <-chan store.Snapshot
}

// ProjectionWriter overwrites the ranking tables.
type ProjectionWriter interface {
	ReplaceExpiring(ctx context.Context, rows []model.ExpiringLed) error
	ReplaceReweigh(ctx context.Context, rows []model.ReweighLed) error
}

// Flusher drops cached reads of the ranking tables.
type Flusher interface {
	Flush()
}

// Dispatcher delivers events in the background.
type Dispatcher interface {
	Start(ctx context.Context)
	Dispatch(ev reconciler.Event)
}

// Broadcaster sends frames to dashboard clients.
type Broadcaster interface {
	Broadcast(frameType string, data any)
}

// Dashboard is the payload of a snapshot frame.
type Dashboard struct {
	Docks        []DockView      `json:"docks"`
	ExpiringSoon []ranking.Entry `json:"expiring_soon"`
	StaleReview  []ranking.Entry `json:"stale_review"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// ErrorFrame is broadcast when the dock set cannot be read.
type ErrorFrame struct {
	Message string `json:"message"`
}

// Service is the dashboard monitor.
type Service struct {
	source     Source
	projection ProjectionWriter
	reconciler *reconciler.Reconciler
	dispatcher Dispatcher
	hub        Broadcaster
	loc        *time.Location
	now        func() time.Time
	cache      Flusher

	writes sync.WaitGroup

	// projMu orders projection writes; a write older than projWritten is skipped.
	projMu      sync.Mutex
	projSeq     uint64
	projWritten uint64
}

// NewService wires a monitor. dispatcher and broadcaster may be nil.
func NewService(src Source, pw ProjectionWriter, r *reconciler.Reconciler, d Dispatcher, b Broadcaster, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:     src,
		projection: pw,
		reconciler: r,
		dispatcher: d,
		hub:        b,
		loc:        loc,
		now:        time.Now,
	}
}

// FlushAfterProjections makes every projection write flush c once both
// ranking tables are rewritten. Call before Run.
func (s *Service) FlushAfterProjections(c Flusher) {
	s.cache = c
}

// Run starts the dispatcher and handles snapshots until ctx ends.
func (s *Service) Run(ctx context.Context) {
	log.Println("Starting dock monitor...")
	if s.dispatcher != nil {
		s.dispatcher.Start(ctx)
	}

	for snap := range s.source.SubscribeAll(ctx, store.OrderByExpiresAt) {
		s.HandleSnapshot(ctx, snap)
	}

	s.Wait()
	log.Println("Dock monitor shutting down.")
}

// HandleSnapshot processes one observation of the dock set.
func (s *Service) HandleSnapshot(ctx context.Context, snap store.Snapshot) {
	if snap.Err != nil {
		log.Printf("Error reading docks: %v", snap.Err)
		s.broadcast(hub.FrameError, ErrorFrame{Message: "Failed to load docks"})
		return
	}

	events := s.reconciler.Reconcile(ctx, snap.Docks)
	if len(events) > 0 && s.dispatcher != nil {
		log.Printf("Dispatching %d dock events", len(events))
		for _, ev := range events {
			s.dispatcher.Dispatch(ev)
		}
	}

	now := s.now()
	expiring := ranking.ExpiringSoon(snap.Docks, now, s.loc)
	stale := ranking.StaleReview(snap.Docks, now)
	s.writeProjections(ctx, expiring, stale)

	views := make([]DockView, 0, len(snap.Docks))
	for _, d := range snap.Docks {
		views = append(views, NewDockView(d, now, s.loc))
	}
	s.broadcast(hub.FrameSnapshot, Dashboard{
		Docks:        views,
		ExpiringSoon: expiring,
		StaleReview:  stale,
		GeneratedAt:  now.UTC(),
	})
}

// writeProjections overwrites both ranking tables in the background.
// Only called from the snapshot loop, so projSeq needs no lock.
func (s *Service) writeProjections(ctx context.Context, expiring, stale []ranking.Entry) {
	s.projSeq++
	seq := s.projSeq

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		s.projMu.Lock()
		defer s.projMu.Unlock()
		if seq < s.projWritten {
			return
		}
		s.projWritten = seq

		if err := s.projection.ReplaceExpiring(ctx, ranking.ExpiringRows(expiring)); err != nil {
			log.Printf("Error updating expiring projection: %v", err)
		}
		if err := s.projection.ReplaceReweigh(ctx, ranking.ReweighRows(stale)); err != nil {
			log.Printf("Error updating reweigh projection: %v", err)
		}
		if s.cache != nil {
			s.cache.Flush()
		}
	}()
}

func (s *Service) broadcast(frameType string, data any) {
	if s.hub != nil {
		s.hub.Broadcast(frameType, data)
	}
}

// Wait blocks until background projection and led_state writes finish.
func (s *Service) Wait() {
	s.writes.Wait()
	s.reconciler.Wait()
}
