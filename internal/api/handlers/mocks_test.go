package handlers_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/postlimit"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/pricing"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/services"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// --- Mocks ---

// MockListingService implements services.IListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, userID utils.SixID, input *services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SearchListings(ctx context.Context, filter *services.ListingFilter) (services.ListingPage, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(services.ListingPage), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool, input *services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, listingID, userID, isAdmin, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) ApproveListing(ctx context.Context, listingID utils.SixID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingService) MarkSold(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	args := m.Called(ctx, listingID, userID, isAdmin)
	return args.Error(0)
}

func (m *MockListingService) ArchiveListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	args := m.Called(ctx, listingID, userID, isAdmin)
	return args.Error(0)
}

func (m *MockListingService) DeleteListing(ctx context.Context, listingID, userID utils.SixID, isAdmin bool) error {
	args := m.Called(ctx, listingID, userID, isAdmin)
	return args.Error(0)
}

func (m *MockListingService) CheckPostingLimit(ctx context.Context, userID utils.SixID) (postlimit.Status, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(postlimit.Status), args.Error(1)
}

func (m *MockListingService) QuoteFees(start time.Time, durationDays int, allCities, top, featured bool) (pricing.Quote, error) {
	args := m.Called(start, durationDays, allCities, top, featured)
	return args.Get(0).(pricing.Quote), args.Error(1)
}

func (m *MockListingService) AttachImage(ctx context.Context, listingID utils.SixID, imageKey string) error {
	args := m.Called(ctx, listingID, imageKey)
	return args.Error(0)
}

func (m *MockListingService) RecordView(ctx context.Context, listingID utils.SixID) {
	m.Called(ctx, listingID)
}

func (m *MockListingService) IncrementViews(ctx context.Context, listingID utils.SixID, delta int64) error {
	args := m.Called(ctx, listingID, delta)
	return args.Error(0)
}

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SuspendUser(ctx context.Context, userID utils.SixID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) UnsuspendUser(ctx context.Context, userID utils.SixID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockCategoryService implements services.ICategoryService
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryService) FindCategoryByID(ctx context.Context, categoryID utils.SixID) (*models.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) SeedDefaultCategories(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockS3Storage implements storage.IS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, listingID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAsynqClient implements handlers.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	mockArgs := []interface{}{ctx, task}
	for _, opt := range opts {
		mockArgs = append(mockArgs, opt)
	}
	args := m.Called(mockArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
