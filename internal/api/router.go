package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/api/handlers"
	"github.com/iharalondon/storefront/internal/api/middleware"
	"github.com/iharalondon/storefront/internal/catalog"
	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/newsletter"
	"github.com/iharalondon/storefront/internal/orders"
	"github.com/iharalondon/storefront/internal/session"
	"github.com/iharalondon/storefront/internal/storage"
)

// Services bundles the collaborators the router wires handlers to.
type Services struct {
	Dispatcher *session.Dispatcher
	Catalog    *catalog.Catalog
	Newsletter *newsletter.Service
	Orders     *orders.Service
	Blobs      storage.Store
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, svcs *Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Ihara & London Storefront API",
			"endpoints": []string{
				"GET /health",
				"GET /v1/catalog/products",
				"POST /v1/session/:sid/commands",
				"GET /v1/session/:sid/cart",
				"POST /v1/newsletter/subscribe",
				"GET /v1/newsletter/confirm",
				"POST /v1/newsletter/unsubscribe",
				"POST /v1/contact",
				"POST /webhooks/mercadopago",
				"GET /v1/admin/orders",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Payment gateway webhook: payment events move recorded orders along
	router.POST("/webhooks/mercadopago", handlers.HandleMercadoPagoWebhook(cfg, svcs.Orders, logger))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/catalog/products", handlers.HandleListProducts(svcs.Catalog, logger))
		v1.GET("/catalog/products/:id", handlers.HandleGetProduct(svcs.Catalog, logger))

		// Session commands create orders on confirmation, so they carry
		// idempotency support.
		sessionRoutes := v1.Group("/session")
		sessionRoutes.Use(middleware.Idempotency(svcs.Blobs, logger))
		{
			sessionRoutes.POST("/:sid/commands", handlers.HandleDispatchCommand(svcs.Dispatcher, logger))
			sessionRoutes.GET("/:sid/cart", handlers.HandleGetCart(svcs.Dispatcher, logger))
		}

		v1.POST("/newsletter/subscribe", handlers.HandleNewsletterSubscribe(svcs.Newsletter, logger))
		v1.GET("/newsletter/confirm", handlers.HandleNewsletterConfirm(svcs.Newsletter, logger))
		v1.POST("/newsletter/confirm", handlers.HandleNewsletterConfirm(svcs.Newsletter, logger))
		v1.POST("/newsletter/unsubscribe", handlers.HandleNewsletterUnsubscribe(svcs.Newsletter, logger))

		v1.POST("/contact", handlers.HandleContact(svcs.Blobs, logger))

		// Admin routes (require the admin API key)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuth(cfg.API.AdminKeyHash, logger))
		{
			adminRoutes.GET("/orders", handlers.HandleListOrders(svcs.Orders, logger))
			adminRoutes.GET("/orders/:reference", handlers.HandleGetOrder(svcs.Orders, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
