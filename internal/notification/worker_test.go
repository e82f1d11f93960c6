package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"firext-backend/internal/hub"
	"firext-backend/internal/reconciler"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type frame struct {
	Type string
	Data any
}

type recordingHub struct {
	mu     sync.Mutex
	frames []frame
}

func (h *recordingHub) Broadcast(frameType string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, frame{frameType, data})
}

func (h *recordingHub) snapshot() []frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]frame(nil), h.frames...)
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(token string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, token)
	return nil
}

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subjects...)
}

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func emptyResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

const subscriptionQuery = `SELECT .* FROM "push_subscriptions".*JOIN .*subscription_dock_mapping.*WHERE .*sdm\.dock_id = \$1`

func leakEvent(id string) reconciler.Event {
	return reconciler.Event{
		Kind:     reconciler.EventLeakDetected,
		Key:      "leak-" + id,
		DockID:   id,
		Name:     "Dock " + id,
		Location: "Hall",
		Weight:   1.5,
		LedOn:    true,
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, db, &webpush.Options{}, nil, nil, nil)

	wp.Dispatch(leakEvent("a"))
	wp.Dispatch(leakEvent("b"))

	require.Len(t, wp.jobs, 1)
	assert.Equal(t, "leak-a", (<-wp.jobs).Key)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	rh := &recordingHub{}
	rb := &recordingBus{}
	wp := NewWorkerPool(1, 8, gormDB, &webpush.Options{}, NewBoard(), rh, rb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				var msg pushMessage
				assert.NoError(t, json.Unmarshal(payload, &msg))
				assert.Equal(t, "Leak Detected!", msg.Title)
				assert.Equal(t, "leak-d1", msg.Tag)
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/push", "test_p256dh", "test_auth", time.Now()))

		wp.Dispatch(leakEvent("d1"))
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())

		active := wp.Board().Active()
		require.Len(t, active, 1)
		assert.Equal(t, "leak-d1", active[0].ID)

		frames := rh.snapshot()
		require.Len(t, frames, 1)
		assert.Equal(t, hub.FrameToast, frames[0].Type)
		assert.Equal(t, []string{"leak_detected"}, rb.published())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return emptyResponse(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs("d2").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/expired", "k", "a", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "subscription_dock_mapping"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		go func() {
			defer wg.Done()
			assert.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, 2*time.Second, 10*time.Millisecond)
		}()

		wp.Dispatch(leakEvent("d2"))
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatch only reaches the bus", func(t *testing.T) {
		before := len(rh.snapshot())
		wp.Dispatch(reconciler.Event{Kind: reconciler.EventLedMismatch, Key: "led-mismatch-d3", DockID: "d3"})

		require.Eventually(t, func() bool {
			subjects := rb.published()
			return len(subjects) > 0 && subjects[len(subjects)-1] == "led_mismatch"
		}, 2*time.Second, 10*time.Millisecond)
		assert.Len(t, rh.snapshot(), before)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
