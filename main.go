package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/config"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/handlers"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/middleware"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/realtime"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/repositories"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"
	"github.com/oficialjosecandido/pickeat-restaurant/pkg/rabbitmq"
)

// main runs the reference owner backend used for development and end to end tests.
func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// The API works without a broker; owners then only see new orders on refresh.
	var publisher services.Publisher
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.EventsExchange})
	if err != nil {
		log.WithError(err).Warn("RabbitMQ unavailable, new order events disabled")
	} else {
		defer mqClient.Close()
		publisher = realtime.NewFeed(mqClient)
	}

	app, authService := newApp(cfg, db, publisher)
	if err := seedOwner(cfg, authService); err != nil {
		log.WithError(err).Warn("Owner seed skipped")
	}

	log.Infof("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Errorf("Error during Fiber shutdown: %v", err)
	}
	log.Info("Server gracefully stopped")
}

// openDatabase picks the GORM driver from the DSN: postgres URLs and
// key=value DSNs go to PostgreSQL, anything else is a SQLite file.
func openDatabase(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Owner{}, &models.Order{}, &models.TimeSlotRecord{})
}

// newApp wires repositories, services and handlers into a Fiber app.
// publisher may be nil.
func newApp(cfg config.Config, db *gorm.DB, publisher services.Publisher) (*fiber.App, *services.AuthService) {
	ownerRepo := repositories.NewGORMOwnerRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	timeSlotRepo := repositories.NewGORMTimeSlotRepository(db)

	authService := services.NewAuthService(ownerRepo, cfg.JWTSecret)
	orderService := services.NewOrderService(orderRepo, publisher)
	timeSlotService := services.NewTimeSlotService(timeSlotRepo)

	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	settingsHandler := handlers.NewSettingsHandler(timeSlotService)

	app := fiber.New()
	app.Use(logger.New())

	auth := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, auth)
	orderHandler.RegisterRoutes(app, auth)
	settingsHandler.RegisterRoutes(app, auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": publisher != nil,
		})
	})

	return app, authService
}

// seedOwner creates the development owner account when it is configured.
func seedOwner(cfg config.Config, authService *services.AuthService) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}
	owner := &models.Owner{
		Email:          cfg.SeedEmail,
		Password:       cfg.SeedPassword,
		FirstName:      "Dev",
		LastName:       "Owner",
		RestaurantName: "Pickeat Test Kitchen",
	}
	if err := authService.RegisterOwner(owner); err != nil {
		return err
	}
	log.WithFields(log.Fields{"email": owner.Email, "owner_id": owner.ID}).Info("Seeded owner")
	return nil
}
