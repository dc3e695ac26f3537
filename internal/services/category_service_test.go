package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

func TestCategoryService_SeedAndList(t *testing.T) {
	db := utils.SetupTestDB(t, "testdb_category_service", "categories")
	svc := NewCategoryService(db)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaultCategories(ctx))

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(defaultCategories))

	// Seeding again is a no-op.
	require.NoError(t, svc.SeedDefaultCategories(ctx))
	again, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(defaultCategories))

	found, err := svc.FindCategoryByID(ctx, categories[0].ID)
	require.NoError(t, err)
	assert.Equal(t, categories[0].Name, found.Name)

	_, err = svc.FindCategoryByID(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "books-and-magazines", slugify("Books & Magazines"))
	assert.Equal(t, "electronics", slugify("Electronics"))
	assert.Equal(t, "baby-and-kids", slugify("Baby & Kids"))
}
