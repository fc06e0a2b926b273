package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danij3l/simple-invoice/config"
	"github.com/danij3l/simple-invoice/handlers"
	"github.com/danij3l/simple-invoice/middleware"
)

func setupLogger(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg.LogLevel)

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Setup router
	router := gin.Default()
	router.HandleMethodNotAllowed = true

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "simple-invoice-api",
		})
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	clientHandler := handlers.NewClientHandler(db)
	invoiceHandler := handlers.NewInvoiceHandler(db, cfg)

	// Auth endpoints
	router.POST("/api/v1/auth/login", authHandler.Login)
	router.POST("/api/v1/auth/refresh", authHandler.Refresh)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.JwtAuthMiddleware(cfg))
	{
		// Client endpoints
		api.POST("/clients", clientHandler.CreateClient)
		api.GET("/clients", clientHandler.ListClients)
		api.GET("/clients/:id", clientHandler.GetClient)
		api.PUT("/clients/:id", clientHandler.UpdateClient)
		api.DELETE("/clients/:id", middleware.RequireRole("admin"), clientHandler.DeleteClient)

		// Invoice endpoints
		api.POST("/invoices", invoiceHandler.CreateInvoice)
		api.GET("/invoices", invoiceHandler.ListInvoices)
		api.GET("/invoices/:id", invoiceHandler.GetInvoice)
		api.DELETE("/invoices/:id", invoiceHandler.DeleteInvoice)
		api.POST("/invoices/:id/pay", invoiceHandler.PayInvoice)
		api.POST("/invoices/:id/refresh-rate", invoiceHandler.RefreshRate)

		// Line item endpoints
		api.POST("/invoices/:id/items", invoiceHandler.CreateItem)
		api.PUT("/items/:id", invoiceHandler.UpdateItem)
		api.DELETE("/items/:id", invoiceHandler.DeleteItem)
	}

	// Invoice views: printable rendering context and duplication.
	// Duplication is POST-only; GET answers 405 via HandleMethodNotAllowed.
	views := router.Group("/invoice")
	views.Use(middleware.JwtAuthMiddleware(cfg))
	{
		views.GET("/:id", invoiceHandler.PrintInvoice)
		views.POST("/:id/duplicate", invoiceHandler.DuplicateInvoice)
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("Starting simple-invoice API server")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
