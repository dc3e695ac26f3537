package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/api/middleware"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/services"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/storage"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/tasks"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// IAsynqClient defines the interface for the Asynq client methods used by the
// handlers. This allows easier mocking than using the concrete asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
	storageService storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestListingHandler {
	return &RestListingHandler{
		listingService: listingService,
		storageService: storageService,
		taskClient:     taskClient,
	}
}

// requestUserID extracts the authenticated user's ID from the Gin context.
func requestUserID(c *gin.Context) (utils.SixID, bool) {
	idStr := c.GetString(middleware.ContextKeyUserID)
	if idStr == "" {
		return utils.SixID{}, false
	}
	userID, err := utils.ParseSixID(idStr)
	if err != nil {
		return utils.SixID{}, false
	}
	return userID, true
}

// respondListingError maps service errors to HTTP responses.
func respondListingError(c *gin.Context, err error, fallback string) {
	var limitErr *services.PostingLimitError
	if errors.As(err, &limitErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Posting limit reached",
			"limit": limitErr.Status,
		})
		return
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
		return
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// parseSearchFilter builds a ListingFilter from request query parameters.
func parseSearchFilter(c *gin.Context) (*services.ListingFilter, error) {
	filter := &services.ListingFilter{
		Search: c.Query("q"),
		City:   c.Query("city"),
		State:  strings.ToUpper(c.Query("state")),
		Sort:   c.Query("sort"),
	}

	if catStr := c.Query("category"); catStr != "" {
		catID, err := utils.ParseSixID(catStr)
		if err != nil {
			return nil, errors.New("invalid category ID format")
		}
		filter.CategoryID = &catID
	}

	if minStr := c.Query("min_price"); minStr != "" {
		min, err := strconv.ParseFloat(minStr, 64)
		if err != nil || min < 0 {
			return nil, errors.New("invalid min_price")
		}
		filter.MinPrice = &min
	}
	if maxStr := c.Query("max_price"); maxStr != "" {
		max, err := strconv.ParseFloat(maxStr, 64)
		if err != nil || max < 0 {
			return nil, errors.New("invalid max_price")
		}
		filter.MaxPrice = &max
	}

	if condStr := c.Query("condition"); condStr != "" {
		for _, cond := range strings.Split(condStr, ",") {
			if trimmed := strings.TrimSpace(cond); trimmed != "" {
				filter.Conditions = append(filter.Conditions, trimmed)
			}
		}
	}

	filter.TopOnly = c.Query("top") == "true"
	filter.FeaturedOnly = c.Query("featured") == "true"
	filter.ExcludeTopAndFeature = c.Query("exclude_promoted") == "true"

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return nil, errors.New("invalid page")
		}
		filter.Page = page
	}
	if sizeStr := c.Query("pageSize"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return nil, errors.New("invalid pageSize")
		}
		filter.PageSize = size
	}

	return filter, nil
}

// SearchListings handles GET /v1/listing/search
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	filter, err := parseSearchFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.listingService.SearchListings(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search listings"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetListingByID handles GET /v1/listing/:id. Only active listings are
// publicly visible; a hit counts as a view.
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondListingError(c, err, "Failed to retrieve listing")
		return
	}
	if listing.Status != models.StatusActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	h.listingService.RecordView(c.Request.Context(), listingID)
	c.JSON(http.StatusOK, listing)
}

// GetMyListings handles GET /v1/my/listings. Returns the caller's listings in
// any status.
func (h *RestListingHandler) GetMyListings(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	filter, err := parseSearchFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.UserID = &userID
	if statusStr := c.Query("status"); statusStr != "" {
		filter.Status = models.ListingStatus(statusStr)
	}

	page, err := h.listingService.SearchListings(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetMyListingByID handles GET /v1/my/listing/:id. Owners see their listings
// in any status.
func (h *RestListingHandler) GetMyListingByID(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondListingError(c, err, "Failed to retrieve listing")
		return
	}
	if listing.UserID != userID && !c.GetBool(middleware.ContextKeyIsAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /v1/listing
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, &input)
	if err != nil {
		respondListingError(c, err, "Failed to create listing")
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PUT /v1/listing/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)
	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, isAdmin, &input)
	if err != nil {
		respondListingError(c, err, "Failed to update listing")
		return
	}

	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /v1/listing/:id. The delete is permanent.
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondListingError(c, err, "Failed to retrieve listing")
		return
	}

	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)
	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID, isAdmin); err != nil {
		respondListingError(c, err, "Failed to delete listing")
		return
	}

	// Best effort: the listing record is already gone, leftover objects only
	// cost storage.
	for _, key := range listing.Images {
		if err := h.storageService.DeleteObject(c.Request.Context(), key); err != nil {
			log.Printf("WARN: failed to delete S3 object %s for deleted listing %s: %v", key, listingID.String(), err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// lifecycleAction wraps the sold/archive transitions.
func (h *RestListingHandler) lifecycleAction(c *gin.Context, action func(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)
	if err := action(c.Request.Context(), listingID, userID, isAdmin); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkSold handles POST /v1/listing/:id/sold
func (h *RestListingHandler) MarkSold(c *gin.Context) {
	h.lifecycleAction(c, h.listingService.MarkSold)
}

// ArchiveListing handles POST /v1/listing/:id/archive
func (h *RestListingHandler) ArchiveListing(c *gin.Context) {
	h.lifecycleAction(c, h.listingService.ArchiveListing)
}

// ApproveListing handles POST /v1/admin/listing/:id/approve
func (h *RestListingHandler) ApproveListing(c *gin.Context) {
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	if err := h.listingService.ApproveListing(c.Request.Context(), listingID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPostingLimit handles GET /v1/my/posting-limit
func (h *RestListingHandler) GetPostingLimit(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	status, err := h.listingService.CheckPostingLimit(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check posting limit"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// QuoteRequest is the payload for fee previews.
type QuoteRequest struct {
	DurationDays int  `json:"duration_days"`
	IsAllCities  bool `json:"is_all_cities"`
	IsTop        bool `json:"is_top_classified"`
	IsFeatured   bool `json:"is_featured_classified"`
}

// QuoteFees handles POST /v1/listing/quote. Returns the end date and fee
// breakdown the chosen options would produce for a listing started now.
func (h *RestListingHandler) QuoteFees(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	quote, err := h.listingService.QuoteFees(time.Now().UTC(), req.DurationDays, req.IsAllCities, req.IsTop, req.IsFeatured)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ImageUploadRequest is the payload for requesting an upload URL.
type ImageUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// RequestImageUpload handles POST /v1/listing/:id/images. It returns a
// pre-signed PUT URL; the client uploads directly to S3 and then calls
// CompleteImageUpload.
func (h *RestListingHandler) RequestImageUpload(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondListingError(c, err, "Failed to retrieve listing")
		return
	}
	if listing.UserID != userID && !c.GetBool(middleware.ContextKeyIsAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	var req ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename and content_type are required"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), userID.String(), listingID.String(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": url, "s3_key": key})
}

// ImageCompleteRequest is the payload for confirming a finished upload.
type ImageCompleteRequest struct {
	S3Key string `json:"s3_key"`
}

// CompleteImageUpload handles POST /v1/listing/:id/images/complete. It
// enqueues the normalization task; the image is attached to the listing once
// the worker has processed it.
func (h *RestListingHandler) CompleteImageUpload(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondListingError(c, err, "Failed to retrieve listing")
		return
	}
	if listing.UserID != userID && !c.GetBool(middleware.ContextKeyIsAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	var req ImageCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.S3Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "s3_key is required"})
		return
	}
	// Only accept keys this listing's upload flow could have produced.
	expectedPrefix := "uploads/" + userID.String() + "/" + listingID.String() + "/"
	if !strings.HasPrefix(req.S3Key, expectedPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "s3_key does not belong to this listing"})
		return
	}

	task, err := tasks.NewImageProcessTask(listingID, req.S3Key)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build processing task"})
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue processing task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
