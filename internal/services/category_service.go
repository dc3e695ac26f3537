package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/db"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// ICategoryService defines the interface for browsing categories.
type ICategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryByID(ctx context.Context, categoryID utils.SixID) (*models.Category, error)
	SeedDefaultCategories(ctx context.Context) error
}

const categoriesCollection = "categories"

// defaultCategories is inserted on first startup if the collection is empty.
var defaultCategories = []string{
	"Antiques & Collectibles",
	"Appliances",
	"Baby & Kids",
	"Books & Magazines",
	"Clothing & Accessories",
	"Electronics",
	"Furniture",
	"Garden & Outdoor",
	"Jobs",
	"Musical Instruments",
	"Pets",
	"Real Estate",
	"Services",
	"Sporting Goods",
	"Tools & Machinery",
	"Vehicles",
	"Other",
}

type categoryService struct {
	db *mongo.Database
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(database *mongo.Database) ICategoryService {
	return &categoryService{db: database}
}

// ListCategories returns all categories sorted by name.
func (s *categoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	collection := s.db.Collection(categoriesCollection)
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// FindCategoryByID finds a category by ID.
func (s *categoryService) FindCategoryByID(ctx context.Context, categoryID utils.SixID) (*models.Category, error) {
	var category models.Category
	collection := s.db.Collection(categoriesCollection)

	err := collection.FindOne(ctx, bson.M{"_id": categoryID}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding category by ID %s: %w", categoryID.String(), err)
	}
	return &category, nil
}

// SeedDefaultCategories inserts the default category set if the collection is
// empty. Safe to call on every startup.
func (s *categoryService) SeedDefaultCategories(ctx context.Context) error {
	collection := s.db.Collection(categoriesCollection)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range defaultCategories {
		name := name
		operation := func() error {
			category := models.Category{
				Base: models.NewBase(),
				Name: name,
				Slug: slugify(name),
			}
			_, insertErr := collection.InsertOne(ctx, category)
			return insertErr
		}
		if err := db.Try(operation); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", name, err)
		}
	}
	return nil
}

// slugify converts a category name to a lowercase hyphenated slug.
func slugify(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "&", "and")
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
