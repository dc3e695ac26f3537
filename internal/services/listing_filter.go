package services

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// Sort keys accepted by the listing search.
const (
	SortNewest     = "newest"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortMostViewed = "most_viewed"
)

// ListingFilter describes one listing search. Zero-value fields mean "no
// constraint"; Normalize fills in defaults before the filter is executed.
type ListingFilter struct {
	Search     string
	CategoryID *utils.SixID
	City       string
	State      string
	MinPrice   *float64
	MaxPrice   *float64
	Conditions []string
	UserID     *utils.SixID

	FeaturedOnly         bool
	TopOnly              bool
	ExcludeTopAndFeature bool

	Status   models.ListingStatus
	Sort     string
	Page     int
	PageSize int
}

// ListingPage is one page of search results.
type ListingPage struct {
	Data       []models.Listing `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// Normalize clamps pagination and fills defaults. Unrecognized sort keys fall
// back to newest-first rather than erroring.
func (f *ListingFilter) Normalize(defaultPageSize, maxPageSize int) {
	if f.Status == "" {
		f.Status = models.StatusActive
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	switch f.Sort {
	case SortPriceAsc, SortPriceDesc, SortMostViewed, SortNewest:
	default:
		f.Sort = SortNewest
	}
}

// Match builds the $match document. Conditions are assembled field by field so
// that absent criteria contribute nothing to the query.
func (f *ListingFilter) Match() bson.M {
	match := bson.M{"status": f.Status}

	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		regex := bson.M{"$regex": pattern, "$options": "i"}
		match["$or"] = bson.A{
			bson.M{"title": regex},
			bson.M{"description": regex},
		}
	}
	if f.CategoryID != nil {
		match["category_id"] = *f.CategoryID
	}
	if f.UserID != nil {
		match["user_id"] = *f.UserID
	}
	if f.City != "" {
		// All-cities listings appear in every city's results.
		match["city"] = bson.M{"$in": bson.A{f.City, models.AllCitiesSentinel}}
	}
	if f.State != "" {
		stateOr := bson.A{
			bson.M{"state": f.State},
			bson.M{"is_all_cities": true},
		}
		if existing, ok := match["$or"]; ok {
			// $or is taken by the search clause; combine via $and so both hold.
			match["$and"] = bson.A{
				bson.M{"$or": existing},
				bson.M{"$or": stateOr},
			}
			delete(match, "$or")
		} else {
			match["$or"] = stateOr
		}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		match["asking_price.value"] = price
	}
	if len(f.Conditions) > 0 {
		match["condition"] = bson.M{"$in": f.Conditions}
	}
	if f.TopOnly {
		match["is_top"] = true
	}
	if f.FeaturedOnly {
		match["is_featured"] = true
	}
	if f.ExcludeTopAndFeature {
		match["is_top"] = false
		match["is_featured"] = false
	}

	return match
}

// sortDoc returns the sort specification. Paid placements always rank first;
// the requested key only orders listings within the same placement tier.
func (f *ListingFilter) sortDoc() bson.D {
	sort := bson.D{
		{Key: "is_top", Value: -1},
		{Key: "is_featured", Value: -1},
	}
	switch f.Sort {
	case SortPriceAsc:
		sort = append(sort,
			bson.E{Key: "price_missing", Value: 1},
			bson.E{Key: "asking_price.value", Value: 1})
	case SortPriceDesc:
		sort = append(sort,
			bson.E{Key: "price_missing", Value: 1},
			bson.E{Key: "asking_price.value", Value: -1})
	case SortMostViewed:
		sort = append(sort, bson.E{Key: "views", Value: -1})
	default:
		sort = append(sort, bson.E{Key: "created_at", Value: -1})
	}
	// Tie-break on _id for a stable page order.
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// needsPriceStage reports whether the pipeline must compute the price_missing
// field. Listings without an asking price ("Negotiable") sort after priced
// ones in either price direction, which a plain sort on the value cannot do.
func (f *ListingFilter) needsPriceStage() bool {
	return f.Sort == SortPriceAsc || f.Sort == SortPriceDesc
}

// Pipeline assembles the aggregation pipeline: match, optional computed
// price_missing field, sort, then a $facet producing one page of data plus
// the total match count in a single round trip.
func (f *ListingFilter) Pipeline() []bson.M {
	pipeline := []bson.M{
		{"$match": f.Match()},
	}

	if f.needsPriceStage() {
		pipeline = append(pipeline, bson.M{
			"$addFields": bson.M{
				"price_missing": bson.M{
					"$cond": bson.A{
						bson.M{"$in": bson.A{
							bson.M{"$type": "$asking_price.value"},
							bson.A{"missing", "null"},
						}},
						1,
						0,
					},
				},
			},
		})
	}

	skip := (f.Page - 1) * f.PageSize
	pipeline = append(pipeline,
		bson.M{"$sort": f.sortDoc()},
		bson.M{"$facet": bson.M{
			"data": bson.A{
				bson.M{"$skip": skip},
				bson.M{"$limit": f.PageSize},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}},
	)

	return pipeline
}

// NewPage assembles the paged response envelope from decoded results.
func (f *ListingFilter) NewPage(data []models.Listing, total int64) ListingPage {
	if data == nil {
		data = []models.Listing{}
	}
	totalPages := int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	return ListingPage{
		Data:       data,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: totalPages,
	}
}
