// Package notification turns reconciler events into dashboard toasts, bus
// messages and web pushes.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"firext-backend/internal/hub"
	"firext-backend/internal/model"
	"firext-backend/internal/reconciler"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Broadcaster delivers a frame to every dashboard client.
type Broadcaster interface {
	Broadcast(frameType string, data any)
}

// Publisher forwards an event to the message bus.
type Publisher interface {
	Publish(token string, payload any) error
}

// pushMessage is the body of a web push as the service worker expects it.
type pushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// WorkerPool fans events out to workers that deliver them.
type WorkerPool struct {
	size    int
	jobs    chan reconciler.Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	board   *Board
	hub     Broadcaster
	bus     Publisher
}

// NewWorkerPool creates a new worker pool. broadcaster and publisher may be nil.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options, board *Board, broadcaster Broadcaster, publisher Publisher) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	if board == nil {
		board = NewBoard()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan reconciler.Event, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		board:   board,
		hub:     broadcaster,
		bus:     publisher,
	}
}

// Board returns the board the workers post toasts to.
func (wp *WorkerPool) Board() *Board {
	return wp.board
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event. It never blocks the caller: when the queue is
// full the event is dropped.
func (wp *WorkerPool) Dispatch(ev reconciler.Event) {
	select {
	case wp.jobs <- ev:
	default:
		log.Printf("Notification queue full; dropping %s", ev.Key)
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, ev reconciler.Event) {
	if wp.bus != nil {
		if err := wp.bus.Publish(string(ev.Kind), ev); err != nil {
			log.Printf("Error publishing %s to bus: %v", ev.Key, err)
		}
	}

	toast, ok := ToastFor(ev)
	if !ok {
		return
	}
	wp.board.Put(toast)
	if wp.hub != nil {
		wp.hub.Broadcast(hub.FrameToast, toast)
	}
	wp.pushForDock(ctx, ev.DockID, toast)
}

// pushForDock sends the toast to every subscription watching the dock.
func (wp *WorkerPool) pushForDock(ctx context.Context, dockID string, toast Toast) {
	if wp.db == nil {
		return
	}
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_dock_mapping sdm ON sdm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sdm.dock_id = ?", dockID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for dock %s: %v", dockID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushMessage{Title: toast.Title, Body: toast.Message, Tag: toast.ID})
	if err != nil {
		log.Printf("Error marshaling push for %s: %v", toast.ID, err)
		return
	}

	log.Printf("Sending %d notifications for dock %s", len(subscriptions), dockID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Select(clause.Associations).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
