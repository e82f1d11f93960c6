package monitor

import (
	"strconv"
	"time"

	"firext-backend/internal/model"
	"firext-backend/internal/policy"
)

// Urgency classes for a dock's expiry date.
const (
	UrgencyExpired = "expired"
	UrgencySoon    = "soon"
	UrgencyOK      = "ok"
	UrgencyUnknown = "unknown"
)

// urgencyWindowDays is how far ahead an expiry counts as soon.
const urgencyWindowDays = 30

// DockView is a dock with everything the dashboard derives from it.
// Weight in the embedded dock is always the normalised value.
type DockView struct {
	model.Dock
	WeightText   string        `json:"weight_text"`
	Band         policy.Band   `json:"band"`
	Status       policy.Status `json:"status"`
	LedOn        bool          `json:"led_on"`
	LedText      string        `json:"led_text"`
	DaysLeft     *int          `json:"days_left"`
	ExpiryText   string        `json:"expiry_text"`
	Urgency      string        `json:"urgency"`
	LastReviewed string        `json:"last_reviewed"`
}

// NewDockView derives the view of d as of now, with calendar days in loc.
func NewDockView(d model.Dock, now time.Time, loc *time.Location) DockView {
	if loc == nil {
		loc = time.UTC
	}
	weight := policy.NormalizeWeight(d.Weight)
	d.Weight = &weight
	ledOn := policy.LedFor(weight)

	v := DockView{
		Dock:         d,
		WeightText:   strconv.FormatFloat(weight, 'f', 1, 64),
		Band:         policy.BandFor(weight),
		Status:       policy.StatusFor(weight),
		LedOn:        ledOn,
		LedText:      "OFF (Normal)",
		ExpiryText:   "N/A",
		Urgency:      UrgencyUnknown,
		LastReviewed: "Never",
	}
	if ledOn {
		v.LedText = "ON (Leak Detected)"
	}

	if d.ExpiresAt != nil {
		days := policy.DaysUntil(*d.ExpiresAt, now, loc)
		v.DaysLeft = &days
		switch {
		case days <= 0:
			v.ExpiryText, v.Urgency = "Expired", UrgencyExpired
		case days <= urgencyWindowDays:
			v.ExpiryText, v.Urgency = strconv.Itoa(days)+" days remaining", UrgencySoon
		default:
			v.ExpiryText, v.Urgency = strconv.Itoa(days)+" days remaining", UrgencyOK
		}
	}

	if d.LastReweighedAt != nil {
		v.LastReviewed = d.LastReweighedAt.In(loc).Format("Jan 2, 2006")
	}
	return v
}
