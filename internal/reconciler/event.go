package reconciler

// EventKind names what the reconciler observed about a dock.
type EventKind string

const (
	// EventLedMismatch: the stored led_state disagreed with the weight and a
	// correction was issued.
	EventLedMismatch EventKind = "led_mismatch"
	// EventLeakDetected: the LED turned on.
	EventLeakDetected EventKind = "leak_detected"
	// EventWeightRestored: the LED turned off.
	EventWeightRestored EventKind = "weight_restored"
	// EventExpiryWarning: the dock expires in exactly ExpiryWarningDays days.
	EventExpiryWarning EventKind = "expiry_warning"
)

// Event is emitted at most once per kind per dock per observation. Key is
// stable per dock and kind so a presentation layer can replace earlier
// notifications in place instead of stacking duplicates.
type Event struct {
	Kind     EventKind `json:"kind"`
	Key      string    `json:"key"`
	DockID   string    `json:"dock_id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	LedNum   *int      `json:"led_num,omitempty"`
	Weight   float64   `json:"weight"`
	LedOn    bool      `json:"led_on"`
	DaysLeft *int      `json:"days_left,omitempty"`
}

func leakKey(id string) string    { return "leak-" + id }
func restoreKey(id string) string { return "restore-" + id }
func expiryKey(id string) string  { return "expiry-warning-5-" + id }
func mismatchKey(id string) string {
	return "led-mismatch-" + id
}
