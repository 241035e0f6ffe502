// Package router assembles the local HTTP API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fintrack/internal/handlers"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
)

// Config holds everything the router needs.
type Config struct {
	LocalAPIKey    string
	Production     bool
	AllowedOrigins []string
	MaxImageBytes  int64
	Tokens         middleware.TokenReader

	Auth       services.AuthServicer
	Categories services.CategoryServicer
	Classify   services.ClassifyServicer
	Forms      services.FormServicer
	Uploads    services.UploadServicer
	UploadRuns services.UploadRunServicer
	Bills      services.BillScanServicer
}

// DefaultAllowedOrigins are used when no CORS origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// New builds the gin engine with middleware and every route.
func New(cfg Config) *gin.Engine {
	authHandler := handlers.NewAuthHandler(cfg.Auth)
	categoryHandler := handlers.NewCategoryHandler(cfg.Categories)
	classifyHandler := handlers.NewClassifyHandler(cfg.Classify)
	formHandler := handlers.NewFormHandler(cfg.Forms)
	uploadHandler := handlers.NewUploadHandler(cfg.Uploads, cfg.UploadRuns, cfg.MaxImageBytes)
	billHandler := handlers.NewBillHandler(cfg.Bills, cfg.MaxImageBytes)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyMiddleware(cfg.LocalAPIKey, cfg.Production))

	// Session routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/status", authHandler.Status)

	// Everything else needs a stored session
	protected := v1.Group("/")
	protected.Use(middleware.RequireSession(cfg.Tokens))

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.ListCategories)
	categories.POST("", categoryHandler.CreateCategory)

	classify := protected.Group("/classify")
	classify.POST("/investment", classifyHandler.ClassifyInvestment)
	classify.POST("/bill", classifyHandler.ClassifyBill)

	forms := protected.Group("/forms")
	forms.POST("", formHandler.CreateForm)
	forms.GET("/:id", formHandler.GetForm)
	forms.PUT("/:id/text", formHandler.SetText)
	forms.PUT("/:id/fields", formHandler.SetFields)
	forms.POST("/:id/categorize", formHandler.CategorizeNow)
	forms.POST("/:id/submit", formHandler.Submit)
	forms.DELETE("/:id", formHandler.CloseForm)

	uploads := protected.Group("/uploads")
	uploads.POST("", uploadHandler.CreateUpload)
	uploads.GET("/categories", categoryHandler.ListUploadCategories)
	uploads.GET("/history", uploadHandler.History)
	uploads.GET("/:id", uploadHandler.GetUpload)
	uploads.DELETE("/:id", uploadHandler.CloseUpload)
	uploads.PUT("/:id/image", uploadHandler.SelectImage)
	uploads.GET("/:id/preview", uploadHandler.Preview)
	uploads.POST("/:id/process", uploadHandler.Process)
	uploads.POST("/:id/duplicates", uploadHandler.ResolveDuplicates)
	uploads.PATCH("/:id/items/:index", uploadHandler.EditItem)
	uploads.DELETE("/:id/items/:index", uploadHandler.DeleteItem)
	uploads.POST("/:id/save", uploadHandler.Save)
	uploads.POST("/:id/reset", uploadHandler.Reset)

	bills := protected.Group("/bills")
	bills.POST("/scan", billHandler.ScanBill)

	return router
}
