// Package pricing derives a listing's end date and upsell fee total from the
// options chosen at creation or edit time. Fees are flat USD amounts; nothing
// here charges anyone, the total is informational only.
package pricing

import (
	"fmt"
	"time"
)

// Allowed listing durations, in calendar days.
const (
	DurationShort = 15
	DurationLong  = 30
)

// FeeTable holds the flat upsell fees. The all-cities fee is duration
// independent; top and featured are tiered by duration.
type FeeTable struct {
	AllCities     float64
	TopShort      float64
	TopLong       float64
	FeaturedShort float64
	FeaturedLong  float64
}

// DefaultFeeTable returns the production fee schedule.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		AllCities:     15,
		TopShort:      12,
		TopLong:       15,
		FeaturedShort: 8,
		FeaturedLong:  12,
	}
}

// Quote is the derived expiry and fee breakdown for one listing.
type Quote struct {
	EndDate        time.Time `json:"end_date"`
	AllCitiesFee   float64   `json:"all_cities_fee"`
	TopAmount      float64   `json:"top_amount"`
	FeaturedAmount float64   `json:"featured_amount"`
	TotalAmount    float64   `json:"total_amount"`
}

// Quote computes the end date and fee breakdown. start must be the listing's
// original start date: edits re-quote against the stored start, never against
// the edit time, so changing the duration moves only the end date.
func (t FeeTable) Quote(start time.Time, durationDays int, allCities, top, featured bool) (Quote, error) {
	if durationDays != DurationShort && durationDays != DurationLong {
		return Quote{}, fmt.Errorf("invalid listing duration %d: must be %d or %d days", durationDays, DurationShort, DurationLong)
	}

	q := Quote{
		EndDate: start.AddDate(0, 0, durationDays),
	}

	if allCities {
		q.AllCitiesFee = t.AllCities
	}
	if top {
		if durationDays == DurationLong {
			q.TopAmount = t.TopLong
		} else {
			q.TopAmount = t.TopShort
		}
	}
	if featured {
		if durationDays == DurationLong {
			q.FeaturedAmount = t.FeaturedLong
		} else {
			q.FeaturedAmount = t.FeaturedShort
		}
	}
	q.TotalAmount = q.AllCitiesFee + q.TopAmount + q.FeaturedAmount

	return q, nil
}
