package notification

import (
	"fmt"
	"time"

	"firext-backend/internal/reconciler"
)

// ToastKind is the visual style of a toast.
type ToastKind string

const (
	ToastWarning ToastKind = "warning"
	ToastSuccess ToastKind = "success"
)

// Toast is a transient dashboard notification. ID is the event key, so a
// second toast for the same dock and kind replaces the first.
type Toast struct {
	ID         string        `json:"id"`
	Kind       ToastKind     `json:"kind"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	DockID     string        `json:"dock_id"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ToastFor renders the toast shown for an event. LED mismatch corrections
// are silent and return false.
func ToastFor(ev reconciler.Event) (Toast, bool) {
	t := Toast{ID: ev.Key, DockID: ev.DockID}
	switch ev.Kind {
	case reconciler.EventLeakDetected:
		t.Kind = ToastWarning
		t.Title = "Leak Detected!"
		t.Message = fmt.Sprintf("%s at %s has low weight (%.1f kg) - LED %s activated",
			ev.Name, ev.Location, ev.Weight, ledLabel(ev.LedNum))
		t.Duration = 10 * time.Second
	case reconciler.EventWeightRestored:
		t.Kind = ToastSuccess
		t.Title = "Weight Restored"
		t.Message = fmt.Sprintf("%s at %s weight is now normal (%.1f kg) - LED %s deactivated",
			ev.Name, ev.Location, ev.Weight, ledLabel(ev.LedNum))
		t.Duration = 5 * time.Second
	case reconciler.EventExpiryWarning:
		t.Kind = ToastWarning
		t.Title = "Expiration Warning"
		t.Message = fmt.Sprintf("%s at %s will expire in %d days.",
			ev.Name, ev.Location, reconciler.ExpiryWarningDays)
		t.Duration = 15 * time.Second
	default:
		return Toast{}, false
	}
	t.DurationMs = t.Duration.Milliseconds()
	return t, true
}

func ledLabel(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}
