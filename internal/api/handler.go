package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"firext-backend/internal/auth"
	"firext-backend/internal/hub"
	"firext-backend/internal/mw"
	"firext-backend/internal/notification"
	"firext-backend/internal/session"
	"firext-backend/internal/store"
)

// Deps are the collaborators the handlers share.
type Deps struct {
	Store        store.Store
	Tracker      *session.Tracker
	Hub          *hub.Hub
	Board        *notification.Board
	Auth         *auth.Authenticator
	Webpush      *webpush.Options
	Location     *time.Location
	CookieSecure bool
	CacheTTL     time.Duration
	// Cache is shared with the monitor so projection rewrites flush it.
	// When nil the handler creates its own with CacheTTL.
	Cache *mw.ResponseCache
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	tracker      *session.Tracker
	hub          *hub.Hub
	board        *notification.Board
	auth         *auth.Authenticator
	webpush      *webpush.Options
	loc          *time.Location
	cookieSecure bool
	cache        *mw.ResponseCache
	now          func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	ttl := d.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	cache := d.Cache
	if cache == nil {
		cache = mw.NewResponseCache(ttl)
	}
	board := d.Board
	if board == nil {
		board = notification.NewBoard()
	}
	return &Handler{
		store:        d.Store,
		tracker:      d.Tracker,
		hub:          d.Hub,
		board:        board,
		auth:         d.Auth,
		webpush:      d.Webpush,
		loc:          loc,
		cookieSecure: d.CookieSecure,
		cache:        cache,
		now:          time.Now,
	}
}

// sessionFor binds the shared authenticator to the request's cookie.
func (h *Handler) sessionFor(c *gin.Context) *auth.Session {
	return auth.NewSession(h.auth, mw.NewCookieStorage(c, h.cookieSecure))
}
