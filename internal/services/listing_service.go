package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/cache"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/db"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/postlimit"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/pricing"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	CreateListing(ctx context.Context, userID utils.SixID, input *ListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error)
	SearchListings(ctx context.Context, filter *ListingFilter) (ListingPage, error)
	UpdateListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool, input *ListingInput) (*models.Listing, error)
	ApproveListing(ctx context.Context, listingID utils.SixID) error
	MarkSold(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error
	ArchiveListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error
	DeleteListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error
	CheckPostingLimit(ctx context.Context, userID utils.SixID) (postlimit.Status, error)
	QuoteFees(start time.Time, durationDays int, allCities, top, featured bool) (pricing.Quote, error)
	AttachImage(ctx context.Context, listingID utils.SixID, imageKey string) error
	RecordView(ctx context.Context, listingID utils.SixID)
	IncrementViews(ctx context.Context, listingID utils.SixID, delta int64) error
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db     *mongo.Database
	rdb    *redis.Client
	cfg    *config.Config
	policy postlimit.Policy
	fees   pricing.FeeTable
}

// NewListingService creates a new ListingService. rdb may be nil, in which
// case view counting is disabled.
func NewListingService(database *mongo.Database, rdb *redis.Client, cfg *config.Config) IListingService {
	return &listingService{
		db:  database,
		rdb: rdb,
		cfg: cfg,
		policy: postlimit.Policy{
			WindowDays: cfg.PostingWindowDays,
			Slots:      cfg.PostingSlots,
		},
		fees: pricing.FeeTable{
			AllCities:     cfg.FeeAllCities,
			TopShort:      cfg.FeeTop15,
			TopLong:       cfg.FeeTop30,
			FeaturedShort: cfg.FeeFeatured15,
			FeaturedLong:  cfg.FeeFeatured30,
		},
	}
}

// CheckPostingLimit evaluates the user's posting slots against the creation
// times of their listings inside the rolling window. Sold and archived
// listings still occupy their slots; only the passage of time frees one.
func (s *listingService) CheckPostingLimit(ctx context.Context, userID utils.SixID) (postlimit.Status, error) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -s.policy.WindowDays)

	collection := s.db.Collection(listingsCollection)
	filter := bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": cutoff},
	}
	opts := options.Find().SetProjection(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return postlimit.Status{}, fmt.Errorf("failed to query recent listings for user %s: %w", userID.String(), err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return postlimit.Status{}, fmt.Errorf("failed to decode recent listings for user %s: %w", userID.String(), err)
	}

	created := make([]time.Time, len(docs))
	for i, d := range docs {
		created[i] = d.CreatedAt
	}
	return s.policy.Evaluate(now, created), nil
}

// QuoteFees computes the end date and fee breakdown for the given options.
func (s *listingService) QuoteFees(start time.Time, durationDays int, allCities, top, featured bool) (pricing.Quote, error) {
	return s.fees.Quote(start, durationDays, allCities, top, featured)
}

// CreateListing validates the input, re-checks the posting limit, and inserts
// the listing in pending state. The limit check and the insert are not atomic;
// a user racing their own submissions can briefly exceed the slot count, which
// the evaluator tolerates by counting only the most recent occupants.
func (s *listingService) CreateListing(ctx context.Context, userID utils.SixID, input *ListingInput) (*models.Listing, error) {
	if err := ValidateListingInput(input, s.cfg.MaxListingImages); err != nil {
		return nil, err
	}

	status, err := s.CheckPostingLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !status.CanPost {
		return nil, &PostingLimitError{Status: status}
	}

	now := time.Now().UTC()
	quote, err := s.fees.Quote(now, input.DurationDays, input.IsAllCities, input.IsTop, input.IsFeatured)
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(listingsCollection)
	var newListing *models.Listing

	operation := func() error {
		newListing = &models.Listing{
			ID:           utils.NewSixID(),
			UserID:       userID,
			Title:        input.Title,
			Description:  input.Description,
			CategoryID:   input.CategoryID,
			City:         input.City,
			State:        input.State,
			Zipcode:      input.Zipcode,
			IsAllCities:  input.IsAllCities,
			AskingPrice:  input.AskingPrice,
			Condition:    input.Condition,
			Images:       []string{},
			ContactEmail: input.ContactEmail,
			ContactPhone: input.ContactPhone,
			Status:       models.StatusPending,
			StartDate:    now,
			DurationDays: input.DurationDays,
			EndDate:      quote.EndDate,
			IsTop:        input.IsTop,
			IsFeatured:   input.IsFeatured,
			Fees: models.FeeBreakdown{
				AllCitiesFee:   quote.AllCitiesFee,
				TopAmount:      quote.TopAmount,
				FeaturedAmount: quote.FeaturedAmount,
				TotalAmount:    quote.TotalAmount,
			},
			Views:     0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, insertErr := collection.InsertOne(ctx, newListing)
		return insertErr
	}

	if err = db.Try(operation); err != nil {
		listingIDStr := "<unknown>"
		if newListing != nil {
			listingIDStr = newListing.ID.String()
		}
		return nil, fmt.Errorf("failed to insert new listing for user %s (last attempted listing ID: %s) after multiple retries: %w",
			userID.String(), listingIDStr, err)
	}

	return newListing, nil
}

// FindListingByID finds a listing by its ID regardless of status. Callers
// decide whether non-active listings may be shown.
func (s *listingService) FindListingByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error) {
	var listing models.Listing
	collection := s.db.Collection(listingsCollection)

	err := collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", listingID.String(), err)
	}
	return &listing, nil
}

// SearchListings executes the filter as one aggregation round trip and
// returns the requested page.
func (s *listingService) SearchListings(ctx context.Context, filter *ListingFilter) (ListingPage, error) {
	filter.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	collection := s.db.Collection(listingsCollection)
	cursor, err := collection.Aggregate(ctx, filter.Pipeline())
	if err != nil {
		return ListingPage{}, fmt.Errorf("failed to execute listing search: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Data  []models.Listing `bson:"data"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err = cursor.All(ctx, &facets); err != nil {
		return ListingPage{}, fmt.Errorf("failed to decode listing search results: %w", err)
	}

	var data []models.Listing
	var total int64
	if len(facets) > 0 {
		data = facets[0].Data
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].Count
		}
	}

	return filter.NewPage(data, total), nil
}

// UpdateListing replaces the mutable fields of a listing. The end date is
// recomputed from the stored original start date, never from the edit time,
// so editing cannot extend a listing's life beyond start + duration.
func (s *listingService) UpdateListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool, input *ListingInput) (*models.Listing, error) {
	if err := ValidateListingInput(input, s.cfg.MaxListingImages); err != nil {
		return nil, err
	}

	existing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && existing.UserID != userID {
		return nil, fmt.Errorf("listing %s does not belong to user %s", listingID.String(), userID.String())
	}

	quote, err := s.fees.Quote(existing.StartDate, input.DurationDays, input.IsAllCities, input.IsTop, input.IsFeatured)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"title":         input.Title,
		"description":   input.Description,
		"category_id":   input.CategoryID,
		"city":          input.City,
		"state":         input.State,
		"zipcode":       input.Zipcode,
		"is_all_cities": input.IsAllCities,
		"asking_price":  input.AskingPrice,
		"condition":     input.Condition,
		"contact_email": input.ContactEmail,
		"contact_phone": input.ContactPhone,
		"duration_days": input.DurationDays,
		"end_date":      quote.EndDate,
		"is_top":        input.IsTop,
		"is_featured":   input.IsFeatured,
		"fees": models.FeeBreakdown{
			AllCitiesFee:   quote.AllCitiesFee,
			TopAmount:      quote.TopAmount,
			FeaturedAmount: quote.FeaturedAmount,
			TotalAmount:    quote.TotalAmount,
		},
		"updated_at": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err = s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, bson.M{"_id": listingID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.String(), err)
	}
	return &updated, nil
}

// transitionStatus moves a listing between lifecycle states, requiring it to
// currently hold one of the allowed states. On a miss it re-queries to report
// which condition failed.
func (s *listingService) transitionStatus(ctx context.Context, listingID, userID utils.SixID, isAdmin bool, from []models.ListingStatus, to models.ListingStatus) error {
	collection := s.db.Collection(listingsCollection)

	filter := bson.M{
		"_id":    listingID,
		"status": bson.M{"$in": from},
	}
	if !isAdmin {
		filter["user_id"] = userID
	}

	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error updating listing %s status: %w", listingID.String(), err)
	}
	if result.MatchedCount == 0 {
		var listing models.Listing
		checkErr := collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		if !isAdmin && listing.UserID != userID {
			return fmt.Errorf("listing %s does not belong to user %s", listingID.String(), userID.String())
		}
		return fmt.Errorf("listing %s is %s and cannot move to %s", listingID.String(), listing.Status, to)
	}
	return nil
}

// ApproveListing moves a pending listing to active. Admin only; the caller
// enforces the role. A listing cannot go live without at least one image.
func (s *listingService) ApproveListing(ctx context.Context, listingID utils.SixID) error {
	collection := s.db.Collection(listingsCollection)

	filter := bson.M{
		"_id":      listingID,
		"status":   models.StatusPending,
		"images.0": bson.M{"$exists": true},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.StatusActive,
		"updated_at": time.Now().UTC(),
	}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error approving listing %s: %w", listingID.String(), err)
	}
	if result.MatchedCount == 0 {
		var listing models.Listing
		checkErr := collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		if listing.Status != models.StatusPending {
			return fmt.Errorf("listing %s is %s and cannot move to %s", listingID.String(), listing.Status, models.StatusActive)
		}
		return fmt.Errorf("listing %s has no images and cannot be published", listingID.String())
	}
	return nil
}

// MarkSold marks an active listing as sold. The posting slot it occupies is
// untouched: slots free on their own schedule.
func (s *listingService) MarkSold(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	return s.transitionStatus(ctx, listingID, userID, isAdmin, []models.ListingStatus{models.StatusActive}, models.StatusSold)
}

// ArchiveListing retires an active or sold listing.
func (s *listingService) ArchiveListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	return s.transitionStatus(ctx, listingID, userID, isAdmin, []models.ListingStatus{models.StatusActive, models.StatusSold}, models.StatusArchived)
}

// DeleteListing permanently removes a listing document. There is no soft
// delete or trash; the record is gone.
func (s *listingService) DeleteListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	collection := s.db.Collection(listingsCollection)

	filter := bson.M{"_id": listingID}
	if !isAdmin {
		filter["user_id"] = userID
	}

	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID.String(), err)
	}
	if result.DeletedCount == 0 {
		var listing models.Listing
		checkErr := collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		return fmt.Errorf("listing %s does not belong to user %s", listingID.String(), userID.String())
	}
	return nil
}

// AttachImage appends a processed image key to the listing. The filter
// requires the slot below the cap to be empty, so concurrent uploads cannot
// push the array past the limit.
func (s *listingService) AttachImage(ctx context.Context, listingID utils.SixID, imageKey string) error {
	collection := s.db.Collection(listingsCollection)

	capIndex := fmt.Sprintf("images.%d", s.cfg.MaxListingImages-1)
	filter := bson.M{
		"_id":    listingID,
		capIndex: bson.M{"$exists": false},
	}
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to listing %s: %w", imageKey, listingID.String(), err)
	}
	if result.MatchedCount == 0 {
		var listing models.Listing
		checkErr := collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		return fmt.Errorf("listing %s already has the maximum of %d images", listingID.String(), s.cfg.MaxListingImages)
	}
	return nil
}

// RecordView bumps the listing's view counter in Redis. Best effort: a
// missing or unreachable Redis never fails the page view.
func (s *listingService) RecordView(ctx context.Context, listingID utils.SixID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, cache.ViewCounterPrefix+listingID.String()).Err(); err != nil {
		log.Printf("WARN: failed to record view for listing %s: %v", listingID.String(), err)
	}
}

// IncrementViews applies an accumulated view count to the stored document.
// Called by the background flush task, not the request path.
func (s *listingService) IncrementViews(ctx context.Context, listingID utils.SixID, delta int64) error {
	if delta <= 0 {
		return nil
	}
	collection := s.db.Collection(listingsCollection)
	_, err := collection.UpdateOne(ctx, bson.M{"_id": listingID}, bson.M{"$inc": bson.M{"views": delta}})
	if err != nil {
		return fmt.Errorf("failed to apply %d views to listing %s: %w", delta, listingID.String(), err)
	}
	return nil
}
