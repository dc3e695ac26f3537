// Package postlimit implements the rolling posting-slot policy for
// classified listings: a user holds a fixed number of posting slots, each
// consumed at listing creation and released a fixed number of days later,
// regardless of how long the listing itself runs.
package postlimit

import (
	"math"
	"sort"
	"time"
)

// Policy describes the rolling window. A slot occupied by a listing frees
// WindowDays after that listing's creation time.
type Policy struct {
	WindowDays int
	Slots      int
}

// DefaultPolicy returns the production policy: 2 slots, 15-day window.
func DefaultPolicy() Policy {
	return Policy{WindowDays: 15, Slots: 2}
}

// Status is the evaluator output consumed by the creation flow and the UI.
type Status struct {
	CanPost              bool       `json:"can_post"`
	PostsAvailable       int        `json:"posts_available"`
	PostsUsed            int        `json:"posts_used"`
	DaysUntilSlot1Unlock int        `json:"days_until_slot1_unlock"`
	DaysUntilSlot2Unlock *int       `json:"days_until_slot2_unlock"`
	OldestPostDate       *time.Time `json:"oldest_post_date"`
}

// Evaluate computes the slot status for a user given the creation times of
// their listings. It is a pure function: the input slice is not modified and
// no external state is consulted.
//
// Listings created within the window occupy slots; when more than Slots
// listings fall inside the window (racing submissions), the most recent
// Slots of them are the occupants. Slot 1 always refers to the occupant that
// frees soonest (the oldest occupant).
func (p Policy) Evaluate(now time.Time, created []time.Time) Status {
	window := time.Duration(p.WindowDays) * 24 * time.Hour
	cutoff := now.Add(-window)

	inWindow := make([]time.Time, 0, len(created))
	for _, t := range created {
		if !t.Before(cutoff) && !t.After(now) {
			inWindow = append(inWindow, t)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })

	// Only the most recent Slots listings occupy slots.
	occupants := inWindow
	if len(occupants) > p.Slots {
		occupants = occupants[len(occupants)-p.Slots:]
	}

	used := len(occupants)
	status := Status{
		CanPost:        len(inWindow) < p.Slots,
		PostsUsed:      used,
		PostsAvailable: p.Slots - used,
	}

	if used == 0 {
		return status
	}

	oldest := occupants[0]
	status.OldestPostDate = &oldest
	status.DaysUntilSlot1Unlock = p.remainingDays(now, oldest)

	if used >= 2 {
		d := p.remainingDays(now, occupants[used-1])
		status.DaysUntilSlot2Unlock = &d
	}

	return status
}

// remainingDays returns ceil(days until the slot occupied at created frees),
// floored at zero.
func (p Policy) remainingDays(now, created time.Time) int {
	window := time.Duration(p.WindowDays) * 24 * time.Hour
	rem := created.Add(window).Sub(now)
	if rem <= 0 {
		return 0
	}
	return int(math.Ceil(rem.Hours() / 24))
}
