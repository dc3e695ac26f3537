package models

import (
	"time"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// ListingStatus is the moderation/lifecycle state of a classified.
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"  // awaiting moderation
	StatusActive   ListingStatus = "active"   // approved, publicly visible
	StatusSold     ListingStatus = "sold"     // marked sold by owner/admin
	StatusArchived ListingStatus = "archived" // retired by owner/admin
)

// AllCitiesSentinel is stored in the city field when a listing is
// published to every locality instead of one city/state.
const AllCitiesSentinel = "ALL"

// Condition values a seller can declare for an item.
const (
	ConditionNew      = "new"
	ConditionLikeNew  = "like_new"
	ConditionUsed     = "used"
	ConditionForParts = "for_parts"
)

// KnownConditions lists the accepted condition values.
var KnownConditions = []string{ConditionNew, ConditionLikeNew, ConditionUsed, ConditionForParts}

// AskingPrice defines the structure for monetary values.
// A nil AskingPrice on a listing renders as "Negotiable".
type AskingPrice struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// FeeBreakdown is the derived monetary total for a listing's upsells.
// It is informational: computed and stored, not charged.
type FeeBreakdown struct {
	AllCitiesFee   float64 `bson:"all_cities_fee" json:"all_cities_fee"`
	TopAmount      float64 `bson:"top_amount" json:"top_amount"`
	FeaturedAmount float64 `bson:"featured_amount" json:"featured_amount"`
	TotalAmount    float64 `bson:"total_amount" json:"total_amount"`
}

// Listing represents a classified ad with a bounded lifetime.
type Listing struct {
	ID           utils.SixID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       utils.SixID   `bson:"user_id" json:"user_id"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	CategoryID   utils.SixID   `bson:"category_id" json:"category_id"`
	City         string        `bson:"city" json:"city"`
	State        string        `bson:"state" json:"state"`
	Zipcode      string        `bson:"zipcode" json:"zipcode"`
	IsAllCities  bool          `bson:"is_all_cities" json:"is_all_cities"`
	AskingPrice  *AskingPrice  `bson:"asking_price,omitempty" json:"asking_price,omitempty"`
	Condition    string        `bson:"condition,omitempty" json:"condition,omitempty"`
	Images       []string      `bson:"images" json:"images"` // S3 keys, at most 4
	ContactEmail string        `bson:"contact_email" json:"contact_email"`
	ContactPhone string        `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Status       ListingStatus `bson:"status" json:"status"`
	StartDate    time.Time     `bson:"start_date" json:"start_date"` // fixed at creation, never reset on edit
	DurationDays int           `bson:"duration_days" json:"duration_days"`
	EndDate      time.Time     `bson:"end_date" json:"end_date"` // start_date + duration_days; advisory only
	IsTop        bool          `bson:"is_top" json:"is_top_classified"`
	IsFeatured   bool          `bson:"is_featured" json:"is_featured_classified"`
	Fees         FeeBreakdown  `bson:"fees" json:"fees"`
	Views        int64         `bson:"views" json:"views"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// IsKnownCondition reports whether s is one of the accepted condition values.
func IsKnownCondition(s string) bool {
	for _, c := range KnownConditions {
		if c == s {
			return true
		}
	}
	return false
}
