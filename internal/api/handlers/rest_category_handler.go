package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/services"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

// RestCategoryHandler handles REST requests for categories.
type RestCategoryHandler struct {
	categoryService services.ICategoryService
}

// NewRestCategoryHandler creates a new RestCategoryHandler.
func NewRestCategoryHandler(categoryService services.ICategoryService) *RestCategoryHandler {
	return &RestCategoryHandler{categoryService: categoryService}
}

// ListCategories handles GET /v1/category
func (h *RestCategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategoryByID handles GET /v1/category/:id
func (h *RestCategoryHandler) GetCategoryByID(c *gin.Context) {
	categoryID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}

	category, err := h.categoryService.FindCategoryByID(c.Request.Context(), categoryID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve category"})
		return
	}
	c.JSON(http.StatusOK, category)
}
