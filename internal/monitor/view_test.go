package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firext-backend/internal/model"
	"firext-backend/internal/policy"
)

func TestNewDockView(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, loc)
	day := func(offset int) *time.Time {
		d := time.Date(2025, time.March, 10+offset, 0, 0, 0, 0, loc)
		return &d
	}
	w := func(f float64) *float64 { return &f }

	tests := []struct {
		name       string
		dock       model.Dock
		weightText string
		band       policy.Band
		ledText    string
		expiryText string
		urgency    string
	}{
		{"low weight expired", model.Dock{Weight: w(2.04), ExpiresAt: day(0)}, "2.0", policy.BandLow, "ON (Leak Detected)", "Expired", UrgencyExpired},
		{"mid weight soon", model.Dock{Weight: w(3.96), ExpiresAt: day(12)}, "4.0", policy.BandMid, "OFF (Normal)", "12 days remaining", UrgencySoon},
		{"full weight far", model.Dock{Weight: w(4.5), ExpiresAt: day(45)}, "4.5", policy.BandFull, "OFF (Normal)", "45 days remaining", UrgencyOK},
		{"no expiry", model.Dock{Weight: w(4.5)}, "4.5", policy.BandFull, "OFF (Normal)", "N/A", UrgencyUnknown},
		{"malformed weight", model.Dock{Weight: w(math.NaN())}, "0.0", policy.BandLow, "ON (Leak Detected)", "N/A", UrgencyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewDockView(tt.dock, now, loc)
			assert.Equal(t, tt.weightText, v.WeightText)
			assert.Equal(t, tt.band, v.Band)
			assert.Equal(t, tt.ledText, v.LedText)
			assert.Equal(t, tt.expiryText, v.ExpiryText)
			assert.Equal(t, tt.urgency, v.Urgency)
			require.NotNil(t, v.Weight)
			assert.False(t, math.IsNaN(*v.Weight))
		})
	}
}

func TestNewDockView_LastReviewed(t *testing.T) {
	now := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	v := NewDockView(model.Dock{}, now, time.UTC)
	assert.Equal(t, "Never", v.LastReviewed)

	reviewed := time.Date(2025, time.February, 3, 23, 30, 0, 0, time.UTC)
	v = NewDockView(model.Dock{LastReweighedAt: &reviewed}, now, time.UTC)
	assert.Equal(t, "Feb 3, 2025", v.LastReviewed)
}
