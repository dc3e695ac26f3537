package postlimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n float64) time.Duration {
	return time.Duration(n * 24 * float64(time.Hour))
}

func TestEvaluate_NoListings(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	status := DefaultPolicy().Evaluate(now, nil)

	assert.True(t, status.CanPost)
	assert.Equal(t, 0, status.PostsUsed)
	assert.Equal(t, 2, status.PostsAvailable)
	assert.Equal(t, 0, status.DaysUntilSlot1Unlock)
	assert.Nil(t, status.DaysUntilSlot2Unlock)
	assert.Nil(t, status.OldestPostDate)
}

func TestEvaluate_OneListingInWindow(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	k := 4 // listing created 4 days ago
	created := []time.Time{now.Add(-days(float64(k)))}

	status := DefaultPolicy().Evaluate(now, created)

	assert.True(t, status.CanPost)
	assert.Equal(t, 1, status.PostsUsed)
	assert.Equal(t, 1, status.PostsAvailable)
	assert.Equal(t, 15-k, status.DaysUntilSlot1Unlock)
	assert.Nil(t, status.DaysUntilSlot2Unlock)
	require.NotNil(t, status.OldestPostDate)
	assert.Equal(t, created[0], *status.OldestPostDate)
}

func TestEvaluate_TwoListingsBlock(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	older := now.Add(-days(9)) // frees soonest
	newer := now.Add(-days(2))
	// Input deliberately unsorted: evaluator must order by creation time itself.
	created := []time.Time{newer, older}

	status := DefaultPolicy().Evaluate(now, created)

	assert.False(t, status.CanPost)
	assert.Equal(t, 2, status.PostsUsed)
	assert.Equal(t, 0, status.PostsAvailable)
	// Slot 1 is the older occupant: larger age, fewer days remaining.
	assert.Equal(t, 15-9, status.DaysUntilSlot1Unlock)
	require.NotNil(t, status.DaysUntilSlot2Unlock)
	assert.Equal(t, 15-2, *status.DaysUntilSlot2Unlock)
	require.NotNil(t, status.OldestPostDate)
	assert.Equal(t, older, *status.OldestPostDate)
}

func TestEvaluate_ListingOutsideWindowIgnored(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	created := []time.Time{
		now.Add(-days(20)), // expired out of the window
		now.Add(-days(3)),
	}

	status := DefaultPolicy().Evaluate(now, created)

	assert.True(t, status.CanPost)
	assert.Equal(t, 1, status.PostsUsed)
	assert.Equal(t, 12, status.DaysUntilSlot1Unlock)
}

func TestEvaluate_MoreThanTwoInWindow(t *testing.T) {
	// Racing submissions can leave more than 2 listings inside the window.
	// The two most recent are the occupants; the oldest drops out of the
	// accounting entirely.
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	created := []time.Time{
		now.Add(-days(14)),
		now.Add(-days(6)),
		now.Add(-days(1)),
	}

	status := DefaultPolicy().Evaluate(now, created)

	assert.False(t, status.CanPost)
	assert.Equal(t, 2, status.PostsUsed)
	assert.Equal(t, 15-6, status.DaysUntilSlot1Unlock)
	require.NotNil(t, status.DaysUntilSlot2Unlock)
	assert.Equal(t, 15-1, *status.DaysUntilSlot2Unlock)
	require.NotNil(t, status.OldestPostDate)
	assert.Equal(t, created[1], *status.OldestPostDate)
}

// Worked scenario: listing A at t=0, listing B at t=3d, observed at t=10d
// and again at t=16d.
func TestEvaluate_RollingScenario(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := t0
	b := t0.Add(days(3))
	created := []time.Time{a, b}

	policy := DefaultPolicy()

	// At t=10d both occupy slots: A has 5 days left, B has 8.
	at10 := policy.Evaluate(t0.Add(days(10)), created)
	assert.False(t, at10.CanPost)
	assert.Equal(t, 2, at10.PostsUsed)
	assert.Equal(t, 5, at10.DaysUntilSlot1Unlock)
	require.NotNil(t, at10.DaysUntilSlot2Unlock)
	assert.Equal(t, 8, *at10.DaysUntilSlot2Unlock)

	// At t=16d A has aged out; only B occupies, with 2 days left.
	at16 := policy.Evaluate(t0.Add(days(16)), created)
	assert.True(t, at16.CanPost)
	assert.Equal(t, 1, at16.PostsUsed)
	assert.Equal(t, 2, at16.DaysUntilSlot1Unlock)
	assert.Nil(t, at16.DaysUntilSlot2Unlock)
}

func TestEvaluate_FractionalAgeRoundsUp(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	// Created 13.5 days ago: 1.5 days remain, which rounds up to 2.
	created := []time.Time{now.Add(-days(13.5))}

	status := DefaultPolicy().Evaluate(now, created)
	assert.Equal(t, 2, status.DaysUntilSlot1Unlock)
}

func TestEvaluate_Idempotent(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	created := []time.Time{now.Add(-days(2)), now.Add(-days(9))}
	input := append([]time.Time(nil), created...)

	policy := DefaultPolicy()
	first := policy.Evaluate(now, created)
	second := policy.Evaluate(now, created)

	assert.Equal(t, first, second)
	// Input order must not be mutated by the internal sort.
	assert.Equal(t, input, created)
}
