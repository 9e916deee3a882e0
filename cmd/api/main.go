package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"file-approval-api/config"
	"file-approval-api/controllers"
	"file-approval-api/middleware"
	"file-approval-api/routes"
	"file-approval-api/services"
	"file-approval-api/storage"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	cfg := config.Load()

	// Identity datastore (only opened when the source is a DSN)
	config.InitIdentityDB(cfg.IdentitySource)

	// Shared-filesystem stores
	paths := storage.NewPathResolver(cfg.NetworkRoot, cfg.LocalFallbackRoot, cfg.ProjectRoot, cfg.ProbeCache)
	store := storage.NewStore()

	identityProvider := services.NewIdentityProvider(config.DB, cfg.IdentitySource)
	archive := services.NewArchiveService(store, paths, cfg.ArchiveCap)
	metadata := services.NewMetadataService(store, paths)
	notifications := services.NewNotificationService(store, paths, cfg.NotifyCap)
	comments := services.NewCommentService(store, paths, notifications)
	placement := services.NewPlacementService(store, paths, archive, metadata)

	engine := services.NewApprovalEngine(store, paths, identityProvider, archive, notifications, comments, placement, cfg.AllowDegradedWrites)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Bootstrap(ctx); err != nil {
		log.Printf("Warning: bootstrap error (will retry on next restart): %v", err)
	}

	// Background placement retrier
	go placement.Run(ctx, cfg.RetryInterval)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	router.Use(middleware.CORSMiddleware())

	controllers.Init(engine, identityProvider, paths)
	routes.SetupRoutes(router)

	if engine.Degraded() {
		log.Println("Warning: shared store unreachable, serving from local fallback in degraded mode")
	}

	log.Printf("Approval API listening on port %s", cfg.ServerPort)
	log.Printf("Shared data root: %s (project root %s)", cfg.NetworkRoot, cfg.ProjectRoot)

	go func() {
		if err := router.Run(":" + cfg.ServerPort); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
	log.Println("Shutting down")
}
