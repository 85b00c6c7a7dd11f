package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/acreage/internal/clients/checkout"
	"github.com/stwalsh4118/acreage/internal/clients/imagery"
	"github.com/stwalsh4118/acreage/internal/clients/parcels"
	"github.com/stwalsh4118/acreage/internal/clients/textgen"
	"github.com/stwalsh4118/acreage/internal/config"
	"github.com/stwalsh4118/acreage/internal/database"
	"github.com/stwalsh4118/acreage/internal/handlers"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/middleware"
	"github.com/stwalsh4118/acreage/internal/repository"
	"github.com/stwalsh4118/acreage/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Acreage API", logger.Fields{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, logger.Fields{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", logger.Fields{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Repositories
	creditRepo := repository.NewCreditRepository(db.Pool)
	listingRepo := repository.NewListingRepository(db.Pool)

	// Services
	parcelService := services.NewParcelService(
		parcels.NewClient(parcels.Options{
			BaseURL:    cfg.Parcels.BaseURL,
			APIKey:     cfg.Parcels.APIKey,
			APIVersion: cfg.Parcels.APIVersion,
			Timeout:    cfg.Parcels.Timeout,
			RateLimit:  cfg.Parcels.RateLimit,
		}),
		services.RegionConfig{
			State:  cfg.Parcels.DefaultState,
			County: cfg.Parcels.DefaultCounty,
		},
		log.WithComponent("parcels"),
	)
	contentService := services.NewContentService(textGenerator(cfg, log), log.WithComponent("content"))
	imageryService := services.NewImageryService(imageryProvider(cfg, log), log.WithComponent("imagery"))
	creditService := services.NewCreditService(creditRepo, checkoutProvider(cfg, log), log.WithComponent("credits"))
	generationService := services.NewGenerationService(
		parcelService,
		imageryService,
		contentService,
		creditService,
		cfg.Generation.StepTimeout,
		log.WithComponent("generation"),
	)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS -> Auth
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(middleware.Auth(cfg.Auth.JWTSecret))

	// Register health check and metrics routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize handlers
	parcelHandler := handlers.NewParcelHandler(parcelService)
	creditHandler := handlers.NewCreditHandler(creditService)
	listingHandler := handlers.NewListingHandler(generationService, listingRepo)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", healthHandler.Info)
		v1.GET("/parcels/:parcelId", parcelHandler.Get)

		credits := v1.Group("/credits")
		{
			credits.GET("", creditHandler.Balance)
			credits.POST("/checkout", creditHandler.Checkout)
		}

		listings := v1.Group("/listings")
		{
			listings.GET("", listingHandler.List)
			listings.GET("/:runId", listingHandler.Get)
			listings.POST("/generate", listingHandler.Generate)
			listings.POST("/generate/stream", listingHandler.Stream)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", logger.Fields{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown. Charged runs finish on their own context; each of
	// their steps is bounded by GENERATION_STEP_TIMEOUT.
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, logger.Fields{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// textGenerator returns nil when no API key is configured, which makes every
// description use the template.
func textGenerator(cfg *config.Config, log *logger.Logger) services.TextGenerator {
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set, descriptions will use the template", nil)
		return nil
	}
	return textgen.NewClient(textgen.Options{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		BaseURL:     cfg.OpenAI.BaseURL,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	})
}

func imageryProvider(cfg *config.Config, log *logger.Logger) services.ImageryProvider {
	if cfg.Imagery.BaseURL == "" {
		log.Warn("IMAGERY_BASE_URL not set, imagery will be degraded", nil)
		return nil
	}
	return imagery.NewClient(imagery.Options{
		BaseURL: cfg.Imagery.BaseURL,
		APIKey:  cfg.Imagery.APIKey,
		Timeout: cfg.Imagery.Timeout,
	})
}

func checkoutProvider(cfg *config.Config, log *logger.Logger) services.CheckoutProvider {
	if cfg.Checkout.BaseURL == "" {
		log.Warn("CHECKOUT_BASE_URL not set, credit purchases are disabled", nil)
		return nil
	}
	return checkout.NewClient(cfg.Checkout.BaseURL, cfg.Checkout.APIKey, nil)
}
