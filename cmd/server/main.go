package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/api"
	"github.com/iharalondon/storefront/internal/catalog"
	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/mailer"
	"github.com/iharalondon/storefront/internal/mercadopago"
	"github.com/iharalondon/storefront/internal/newsletter"
	"github.com/iharalondon/storefront/internal/orders"
	"github.com/iharalondon/storefront/internal/payment"
	"github.com/iharalondon/storefront/internal/session"
	"github.com/iharalondon/storefront/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting storefront API server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	// Initialize blob store
	blobs, err := storage.Open(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer blobs.Close()

	// Load the product catalog
	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	surcharge, err := decimal.NewFromString(cfg.Checkout.DeliverySurcharge)
	if err != nil {
		logger.Fatal("Invalid DELIVERY_SURCHARGE", zap.Error(err))
	}

	// Wire collaborators and services
	mail := mailer.NewClient(cfg.SendGrid, logger)
	gateway := mercadopago.NewClient(cfg.MercadoPago, cfg.BaseURL, logger)
	ordersSvc := orders.NewService(blobs, gateway, mail, logger)
	newsSvc := newsletter.NewService(blobs, mail, cfg.BaseURL,
		time.Duration(cfg.Newsletter.TokenTTLHours)*time.Hour, logger)
	dispatcher := session.NewDispatcher(
		session.NewRegistry(blobs, logger),
		cat,
		payment.NewSelector(),
		ordersSvc,
		surcharge,
		logger,
	)

	// Initialize router
	router := api.NewRouter(cfg, &api.Services{
		Dispatcher: dispatcher,
		Catalog:    cat,
		Newsletter: newsSvc,
		Orders:     ordersSvc,
		Blobs:      blobs,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
