package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/api/handlers"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/api/middleware"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/captcha"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/services"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db, cfg)
	listingService := services.NewListingService(db, rdb, cfg)
	categoryService := services.NewCategoryService(db)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Global middleware (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CaptchaMiddleware(cfg, captchaVerifier))
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restListingHandler := handlers.NewRestListingHandler(listingService, s3StorageService, taskClient)
	restUserHandler := handlers.NewRestUserHandler(cfg, userService)
	restCategoryHandler := handlers.NewRestCategoryHandler(categoryService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.GET("/listing/search", restListingHandler.SearchListings)
		v1.GET("/listing/:id", restListingHandler.GetListingByID)
		v1.POST("/listing/quote", restListingHandler.QuoteFees)

		v1.GET("/category", restCategoryHandler.ListCategories)
		v1.GET("/category/:id", restCategoryHandler.GetCategoryByID)

		v1.POST("/user/register", restUserHandler.Register)
		v1.POST("/user/login", restUserHandler.Login)
		v1.GET("/user/:id", restUserHandler.GetUserByID)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/my/profile", restUserHandler.GetMe)
			authRequired.GET("/my/listings", restListingHandler.GetMyListings)
			authRequired.GET("/my/listing/:id", restListingHandler.GetMyListingByID)
			authRequired.GET("/my/posting-limit", restListingHandler.GetPostingLimit)

			authRequired.POST("/listing", restListingHandler.CreateListing)
			authRequired.PUT("/listing/:id", restListingHandler.UpdateListing)
			authRequired.DELETE("/listing/:id", restListingHandler.DeleteListing)
			authRequired.POST("/listing/:id/sold", restListingHandler.MarkSold)
			authRequired.POST("/listing/:id/archive", restListingHandler.ArchiveListing)
			authRequired.POST("/listing/:id/images", restListingHandler.RequestImageUpload)
			authRequired.POST("/listing/:id/images/complete", restListingHandler.CompleteImageUpload)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/listing/:id/approve", restListingHandler.ApproveListing)
			adminRequired.POST("/user/:id/suspend", restUserHandler.SuspendUser)
			adminRequired.POST("/user/:id/unsuspend", restUserHandler.UnsuspendUser)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used for
// operational commands on a private port.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "ping":
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "pong"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
