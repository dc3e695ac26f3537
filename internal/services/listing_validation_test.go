package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

func validInput() *ListingInput {
	return &ListingInput{
		Title:        "Vintage road bike",
		Description:  "Well maintained, new tires.",
		CategoryID:   utils.NewSixID(),
		City:         "Portland",
		State:        "OR",
		Zipcode:      "97201",
		ContactEmail: "seller@example.com",
		DurationDays: 15,
		AcceptTerms:  true,
	}
}

func TestValidateListingInput_Valid(t *testing.T) {
	input := validInput()
	err := ValidateListingInput(input, 4)
	assert.NoError(t, err)
}

func TestValidateListingInput_MissingFields(t *testing.T) {
	input := &ListingInput{}
	err := ValidateListingInput(input, 4)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"title", "description", "category_id", "city", "state", "zipcode", "contact_email", "duration_days", "terms"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestValidateListingInput_TermsNotAccepted(t *testing.T) {
	input := validInput()
	input.AcceptTerms = false

	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "terms")
}

func TestValidateListingInput_AllCitiesNormalization(t *testing.T) {
	input := validInput()
	input.IsAllCities = true
	input.City = "Portland"
	input.State = "OR"
	input.Zipcode = "97201"

	err := ValidateListingInput(input, 4)
	require.NoError(t, err)

	assert.Equal(t, models.AllCitiesSentinel, input.City)
	assert.Empty(t, input.State)
	assert.Empty(t, input.Zipcode)
}

func TestValidateListingInput_AllCitiesSkipsLocalityChecks(t *testing.T) {
	input := validInput()
	input.IsAllCities = true
	input.City = ""
	input.State = ""

	err := ValidateListingInput(input, 4)
	assert.NoError(t, err)
	assert.Equal(t, models.AllCitiesSentinel, input.City)
}

func TestValidateListingInput_ImageCap(t *testing.T) {
	input := validInput()
	input.Images = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}

	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "images")

	input.Images = input.Images[:4]
	assert.NoError(t, ValidateListingInput(input, 4))
}

func TestValidateListingInput_BadDuration(t *testing.T) {
	for _, d := range []int{0, 7, 20, 45} {
		input := validInput()
		input.DurationDays = d
		err := ValidateListingInput(input, 4)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "duration_days")
	}
}

func TestValidateListingInput_UnknownCondition(t *testing.T) {
	input := validInput()
	input.Condition = "slightly_haunted"

	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "condition")

	input.Condition = models.ConditionUsed
	assert.NoError(t, ValidateListingInput(input, 4))
}

func TestValidateListingInput_NegativePrice(t *testing.T) {
	input := validInput()
	input.AskingPrice = &models.AskingPrice{Value: -5}

	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "asking_price")
}

func TestValidateListingInput_DefaultsCurrency(t *testing.T) {
	input := validInput()
	input.AskingPrice = &models.AskingPrice{Value: 100}

	require.NoError(t, ValidateListingInput(input, 4))
	assert.Equal(t, "USD", input.AskingPrice.CurrencyCode)
}

func TestValidateListingInput_BadEmail(t *testing.T) {
	input := validInput()
	input.ContactEmail = "not-an-email"

	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "contact_email")
}

func TestValidateListingInput_TrimsAndLimits(t *testing.T) {
	input := validInput()
	input.Title = "  padded title  "
	require.NoError(t, ValidateListingInput(input, 4))
	assert.Equal(t, "padded title", input.Title)

	input = validInput()
	input.Title = strings.Repeat("x", titleMaxLen+1)
	err := ValidateListingInput(input, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
}
