package store

import (
	"errors"

	"firext-backend/internal/model"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrRead wraps failures to read from the store while streaming.
	ErrRead = errors.New("store read failed")
)

// OrderKey selects the ordering of a full dock listing.
type OrderKey string

const (
	OrderByExpiresAt OrderKey = "expires_at"
	OrderByCreatedAt OrderKey = "created_at"
)

// ParseOrderKey maps a query value to an OrderKey, falling back to expiry order.
func ParseOrderKey(s string) OrderKey {
	if OrderKey(s) == OrderByCreatedAt {
		return OrderByCreatedAt
	}
	return OrderByExpiresAt
}

// Snapshot is a full point-in-time copy of all docks.
type Snapshot struct {
	Docks []model.Dock
	Err   error
}

// DockSnapshot is a point-in-time copy of a single dock. Dock is nil when
// the dock does not exist.
type DockSnapshot struct {
	Dock *model.Dock
	Err  error
}
