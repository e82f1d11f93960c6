package notification

import (
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
)

// Board holds the toasts currently on screen. Entries expire after their
// own duration.
type Board struct {
	cache *cache.Cache
	now   func() time.Time
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		cache: cache.New(cache.NoExpiration, time.Minute),
		now:   time.Now,
	}
}

// Put shows t, replacing any toast with the same ID.
func (b *Board) Put(t Toast) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = b.now()
	}
	b.cache.Set(t.ID, t, t.Duration)
}

// Active returns the unexpired toasts, oldest first.
func (b *Board) Active() []Toast {
	items := b.cache.Items()
	toasts := make([]Toast, 0, len(items))
	for _, item := range items {
		toasts = append(toasts, item.Object.(Toast))
	}
	sort.Slice(toasts, func(i, j int) bool {
		if toasts[i].CreatedAt.Equal(toasts[j].CreatedAt) {
			return toasts[i].ID < toasts[j].ID
		}
		return toasts[i].CreatedAt.Before(toasts[j].CreatedAt)
	})
	return toasts
}
