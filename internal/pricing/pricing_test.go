package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote_FeeGrid(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	table := DefaultFeeTable()

	topFee := map[int]float64{15: 12, 30: 15}
	featuredFee := map[int]float64{15: 8, 30: 12}

	for _, duration := range []int{15, 30} {
		for _, allCities := range []bool{false, true} {
			for _, top := range []bool{false, true} {
				for _, featured := range []bool{false, true} {
					q, err := table.Quote(start, duration, allCities, top, featured)
					require.NoError(t, err)

					var wantAllCities, wantTop, wantFeatured float64
					if allCities {
						wantAllCities = 15
					}
					if top {
						wantTop = topFee[duration]
					}
					if featured {
						wantFeatured = featuredFee[duration]
					}

					assert.Equal(t, wantAllCities, q.AllCitiesFee)
					assert.Equal(t, wantTop, q.TopAmount)
					assert.Equal(t, wantFeatured, q.FeaturedAmount)
					assert.Equal(t, wantAllCities+wantTop+wantFeatured, q.TotalAmount)
				}
			}
		}
	}
}

func TestQuote_EndDate(t *testing.T) {
	table := DefaultFeeTable()
	start := time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)

	q15, err := table.Quote(start, 15, false, false, false)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 15), q15.EndDate)
	assert.Equal(t, 15*24*time.Hour, q15.EndDate.Sub(start))

	q30, err := table.Quote(start, 30, false, false, false)
	require.NoError(t, err)
	// Crosses a month boundary; calendar-day arithmetic must still hold.
	assert.Equal(t, time.Date(2024, 3, 21, 9, 30, 0, 0, time.UTC), q30.EndDate)
}

func TestQuote_EditRecomputesFromOriginalStart(t *testing.T) {
	table := DefaultFeeTable()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// Initial quote at 15 days.
	first, err := table.Quote(start, 15, false, true, false)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 15), first.EndDate)
	assert.Equal(t, 12.0, first.TopAmount)

	// Days later the owner extends to 30 days. The caller passes the stored
	// original start date, so the end date anchors to creation time.
	edited, err := table.Quote(start, 30, false, true, false)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 30), edited.EndDate)
	assert.Equal(t, 15.0, edited.TopAmount)
}

func TestQuote_InvalidDuration(t *testing.T) {
	table := DefaultFeeTable()
	start := time.Now()

	for _, d := range []int{0, -15, 7, 20, 45} {
		_, err := table.Quote(start, d, false, false, false)
		assert.Error(t, err, "duration %d should be rejected", d)
	}
}

func TestQuote_Idempotent(t *testing.T) {
	table := DefaultFeeTable()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	first, err := table.Quote(start, 30, true, true, true)
	require.NoError(t, err)
	second, err := table.Quote(start, 30, true, true, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 15.0+15.0+12.0, first.TotalAmount)
}
