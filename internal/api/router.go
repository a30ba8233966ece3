package api

import (
	"github.com/gin-gonic/gin"

	"github.com/syncline/marketsync/internal/api/handler"
	"github.com/syncline/marketsync/internal/api/middleware"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/queue"
	"github.com/syncline/marketsync/internal/repository"
	"github.com/syncline/marketsync/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	connectionService *service.ConnectionService,
	metadataService *service.MetadataService,
	q queue.Queue,
	products *repository.ProductRepository,
	log *logger.Logger,
	mode string,
	allowedOrigins []string,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: allowedOrigins}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	connectionHandler := handler.NewConnectionHandler(connectionService)
	metadataHandler := handler.NewMetadataHandler(metadataService)
	syncHandler := handler.NewSyncHandler(q)
	productHandler := handler.NewProductHandler(products)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Connections
		v1.POST("/connections/test", connectionHandler.Test)
		v1.POST("/connections", connectionHandler.Create)
		v1.GET("/connections", connectionHandler.List)
		v1.GET("/connections/:id", connectionHandler.Get)
		v1.DELETE("/connections/:id", connectionHandler.Delete)

		// Catalog metadata
		v1.GET("/connections/:id/categories", metadataHandler.Categories)
		v1.GET("/connections/:id/brands", metadataHandler.Brands)

		// Sync jobs
		v1.POST("/connections/:id/sync", syncHandler.Enqueue)
		v1.GET("/sync-jobs/:id", syncHandler.Status)
		v1.POST("/sync-jobs/:id/cancel", syncHandler.Cancel)

		// Synced products
		v1.GET("/connections/:id/products", productHandler.List)
	}

	return r
}
