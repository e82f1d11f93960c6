// Package ranking derives the bounded LED lists the physical controller
// reads: docks about to expire and docks overdue for a reweigh.
package ranking

import (
	"sort"
	"time"

	"firext-backend/internal/model"
	"firext-backend/internal/policy"
)

const (
	// ExpiringSoonDays includes docks expiring within this many days (or already expired).
	ExpiringSoonDays = 5
	// ReweighAfterDays marks a dock stale when it was not reweighed for this long.
	ReweighAfterDays = 30
	// TopN bounds both lists.
	TopN = 5
)

// Entry is one ranked dock projected to its LED channel.
type Entry struct {
	DockID string `json:"dock_id"`
	LedNum int    `json:"led_num"`
	Rank   int    `json:"rank"`
}

type candidate struct {
	dock model.Dock
	key  int64
}

// ExpiringSoon returns up to TopN docks whose expiry is at most
// ExpiringSoonDays away, soonest first. Docks without an expiry date are
// never included.
func ExpiringSoon(docks []model.Dock, now time.Time, loc *time.Location) []Entry {
	var cands []candidate
	for _, d := range docks {
		if d.ExpiresAt == nil {
			continue
		}
		days := policy.DaysUntil(*d.ExpiresAt, now, loc)
		if days <= ExpiringSoonDays {
			cands = append(cands, candidate{dock: d, key: int64(days)})
		}
	}
	return project(cands)
}

// StaleReview returns up to TopN docks never reweighed or last reweighed
// more than ReweighAfterDays ago, oldest first with never-reweighed docks
// ahead of all others.
func StaleReview(docks []model.Dock, now time.Time) []Entry {
	cutoff := now.AddDate(0, 0, -ReweighAfterDays)

	var cands []candidate
	for _, d := range docks {
		if d.LastReweighedAt != nil && !d.LastReweighedAt.Before(cutoff) {
			continue
		}
		var key int64
		if d.LastReweighedAt != nil {
			key = d.LastReweighedAt.UnixMilli()
		}
		cands = append(cands, candidate{dock: d, key: key})
	}
	return project(cands)
}

// project sorts by key, keeps the first TopN and drops docks without an LED.
func project(cands []candidate) []Entry {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].key < cands[j].key
	})
	if len(cands) > TopN {
		cands = cands[:TopN]
	}

	entries := make([]Entry, 0, len(cands))
	for _, c := range cands {
		if c.dock.LedNum == nil {
			continue
		}
		entries = append(entries, Entry{
			DockID: c.dock.ID,
			LedNum: *c.dock.LedNum,
			Rank:   len(entries) + 1,
		})
	}
	return entries
}

// ExpiringRows converts entries to to_expire rows.
func ExpiringRows(entries []Entry) []model.ExpiringLed {
	rows := make([]model.ExpiringLed, len(entries))
	for i, e := range entries {
		rows[i] = model.ExpiringLed{DockID: e.DockID, LedNum: e.LedNum, Rank: e.Rank}
	}
	return rows
}

// ReweighRows converts entries to for_reweigh rows.
func ReweighRows(entries []Entry) []model.ReweighLed {
	rows := make([]model.ReweighLed, len(entries))
	for i, e := range entries {
		rows[i] = model.ReweighLed{DockID: e.DockID, LedNum: e.LedNum, Rank: e.Rank}
	}
	return rows
}
