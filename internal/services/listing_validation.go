package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/pricing"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

const (
	titleMaxLen       = 100
	descriptionMaxLen = 4000
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ListingInput carries the user-submitted fields of a listing create or edit.
// Validation and normalization happen here, before the service touches the
// database.
type ListingInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	CategoryID   utils.SixID         `json:"category_id"`
	City         string              `json:"city"`
	State        string              `json:"state"`
	Zipcode      string              `json:"zipcode"`
	IsAllCities  bool                `json:"is_all_cities"`
	AskingPrice  *models.AskingPrice `json:"asking_price"`
	Condition    string              `json:"condition"`
	ContactEmail string              `json:"contact_email"`
	ContactPhone string              `json:"contact_phone"`
	DurationDays int                 `json:"duration_days"`
	IsTop        bool                `json:"is_top_classified"`
	IsFeatured   bool                `json:"is_featured_classified"`
	Images       []string            `json:"images"`
	AcceptTerms  bool                `json:"accept_terms"`
}

// ValidateListingInput checks all user-supplied fields and normalizes the
// input in place. On failure it returns a *ValidationError naming every bad
// field at once, so the user fixes the whole form in one pass.
func ValidateListingInput(input *ListingInput, maxImages int) error {
	fields := map[string]string{}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.Zipcode = strings.TrimSpace(input.Zipcode)

	if input.Title == "" {
		fields["title"] = "title is required"
	} else if len(input.Title) > titleMaxLen {
		fields["title"] = fmt.Sprintf("title must be at most %d characters", titleMaxLen)
	}

	if input.Description == "" {
		fields["description"] = "description is required"
	} else if len(input.Description) > descriptionMaxLen {
		fields["description"] = fmt.Sprintf("description must be at most %d characters", descriptionMaxLen)
	}

	if input.CategoryID == (utils.SixID{}) {
		fields["category_id"] = "category is required"
	}

	if input.IsAllCities {
		// All-cities listings carry the sentinel instead of a real locality.
		input.City = models.AllCitiesSentinel
		input.State = ""
		input.Zipcode = ""
	} else {
		if input.City == "" {
			fields["city"] = "city is required"
		}
		if input.State == "" {
			fields["state"] = "state is required"
		}
		if input.Zipcode == "" {
			fields["zipcode"] = "zipcode is required"
		}
	}

	if input.AskingPrice != nil {
		if input.AskingPrice.Value < 0 {
			fields["asking_price"] = "price cannot be negative"
		}
		if input.AskingPrice.CurrencyCode == "" {
			input.AskingPrice.CurrencyCode = "USD"
		}
	}

	if input.Condition != "" && !models.IsKnownCondition(input.Condition) {
		fields["condition"] = fmt.Sprintf("condition must be one of: %s", strings.Join(models.KnownConditions, ", "))
	}

	if input.ContactEmail == "" {
		fields["contact_email"] = "contact email is required"
	} else if !emailRegexp.MatchString(input.ContactEmail) {
		fields["contact_email"] = "contact email is not a valid address"
	}

	if input.DurationDays != pricing.DurationShort && input.DurationDays != pricing.DurationLong {
		fields["duration_days"] = fmt.Sprintf("duration must be %d or %d days", pricing.DurationShort, pricing.DurationLong)
	}

	if len(input.Images) > maxImages {
		fields["images"] = fmt.Sprintf("a listing can have at most %d images", maxImages)
	}

	if !input.AcceptTerms {
		fields["terms"] = "the terms of use must be accepted"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
