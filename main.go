package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/bhoomiseva/landrecords-backend/database"
	"github.com/bhoomiseva/landrecords-backend/internal/handlers"
	"github.com/bhoomiseva/landrecords-backend/internal/models"
	"github.com/bhoomiseva/landrecords-backend/internal/routes"
	"github.com/bhoomiseva/landrecords-backend/internal/services"
	"github.com/bhoomiseva/landrecords-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	store, storageMode := buildStore()
	storage.SetStore(store)

	// Initialize services
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	notifier := services.LogNotifier{}
	orderService := services.NewOrderService(store, services.MockGateway{}, baseURL)
	conversation := services.NewConversationService(store, orderService, os.Getenv("CAPTURE_MODE"))
	verifier := services.HMACVerifier{Secret: os.Getenv("PAYMENT_KEY_SECRET")}
	paymentService := services.NewPaymentService(store, verifier, notifier)
	dispatcher := services.NewDispatcher(conversation, notifier)

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Land Records Bot Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Setup routes
	webhookHandler := handlers.NewWebhookHandler(dispatcher, os.Getenv("VERIFY_TOKEN"))
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(storageMode)
	routes.SetupRoutes(app, webhookHandler, paymentHandler, healthHandler)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		dispatcher.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Land Records Bot starting on port %s", port)
	log.Printf("📊 Storage: %s", storageMode)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// buildStore selects the storage backend. The durable database backend is
// always paired with an in-memory standby behind one contract; when the
// database is unreachable at startup the bot keeps serving from memory.
func buildStore() (storage.Store, string) {
	memory := storage.NewMemoryStore()

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		return memory, "In-Memory (Testing)"
	}

	log.Println("📦 Connecting to PostgreSQL database...")
	db, err := database.Connect()
	if err != nil {
		log.Printf("⚠️  Database unavailable, falling back to in-memory storage: %v", err)
		return memory, "In-Memory (Database Unavailable)"
	}

	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(&models.User{}, &models.Session{}, &models.Order{}); err != nil {
		log.Printf("⚠️  Migration failed, falling back to in-memory storage: %v", err)
		return memory, "In-Memory (Migration Failed)"
	}
	log.Println("✅ Database migrations completed!")

	return storage.NewFallbackStore(storage.NewDatabaseStore(db), memory), "PostgreSQL Database"
}
