package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driveon/backend/internal/config"
	"github.com/driveon/backend/internal/database"
	"github.com/driveon/backend/internal/handlers"
	"github.com/driveon/backend/internal/middleware"
	"github.com/driveon/backend/internal/models"
	"github.com/driveon/backend/internal/services"
	"github.com/driveon/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Persist the JWT secret so sessions survive restarts
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	// Seed demo user if the database is empty
	seedDemoUser(cfg)

	// Blob store backend (local disk or FTP)
	blobs, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	log.Printf("Blob store driver: %s", cfg.StorageDriver)

	// Core services
	hierarchyService := services.NewHierarchyService(database.DB, blobs)
	quotaService := services.NewQuotaService(database.DB)
	trashService := services.NewTrashService(database.DB, blobs)
	shareService := services.NewShareService(database.DB, blobs)

	// Start the expired share link reaper (sweeps every 10 minutes)
	shareReaper := services.NewShareReaperService(database.DB, 10*time.Minute)
	shareReaper.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "DriveOn API v1.0",
		ServerHeader: "DriveOn",
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "driveon-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	folderHandler := handlers.NewFolderHandler(hierarchyService)
	fileHandler := handlers.NewFileHandler(hierarchyService, quotaService, blobs)
	trashHandler := handlers.NewTrashHandler(trashService)
	shareHandler := handlers.NewShareHandler(shareService)

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Public share routes (token-gated, no session)
	api.Get("/share/:token", shareHandler.Info)
	api.Post("/share/:token/download", shareHandler.Download)
	api.Get("/public/:token", shareHandler.PublicFile)
	api.Get("/public/:token/download", shareHandler.PublicDownload)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Get("/storage", fileHandler.Storage)

	// Folder routes
	protected.Post("/folders", folderHandler.Create)
	protected.Get("/folders", folderHandler.List)
	protected.Get("/folders/:id", folderHandler.Get)
	protected.Put("/folders/:id", folderHandler.Rename)
	protected.Put("/folders/:id/move", folderHandler.Move)
	protected.Delete("/folders/:id", folderHandler.Delete)

	// File routes
	protected.Post("/files", fileHandler.Upload)
	protected.Get("/files", fileHandler.List)
	protected.Get("/files/:id", fileHandler.Get)
	protected.Get("/files/:id/download", fileHandler.Download)
	protected.Get("/files/:id/view", fileHandler.View)
	protected.Put("/files/:id", fileHandler.Rename)
	protected.Put("/files/:id/move", fileHandler.Move)
	protected.Put("/files/:id/remove-from-folder", fileHandler.RemoveFromFolder)
	protected.Put("/files/:id/share", shareHandler.TogglePublic)
	protected.Delete("/files/:id", fileHandler.Delete)

	// Trash routes
	protected.Get("/trash", trashHandler.List)
	protected.Post("/trash", trashHandler.Trash)
	protected.Post("/trash/restore", trashHandler.Restore)
	protected.Post("/trash/delete", trashHandler.PermanentDelete)
	protected.Delete("/trash", trashHandler.Empty)

	// Share link routes
	protected.Post("/shares", shareHandler.Create)
	protected.Get("/shares", shareHandler.List)
	protected.Delete("/shares/:id", shareHandler.Revoke)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		shareReaper.Stop()
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting DriveOn API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedDemoUser(cfg *config.Config) {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)

	if count == 0 {
		log.Println("Creating demo user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)

		demo := models.User{
			Name:         "Demo User",
			Email:        "demo@driveon.local",
			Password:     string(hashedPassword),
			StorageLimit: cfg.DefaultStorageLimit,
			IsVerified:   true,
		}

		if err := database.DB.Create(&demo).Error; err != nil {
			log.Printf("Failed to create demo user: %v", err)
		} else {
			log.Println("Demo user created (email: demo@driveon.local, password: demo1234)")
		}
	}
}
