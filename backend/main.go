package main

import (
	"context"
	"log"

	"usuarios/backend/config"
	"usuarios/backend/middleware"
	"usuarios/backend/routes"
	"usuarios/backend/services"
	"usuarios/backend/store"
	"usuarios/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{EnableColors: true})

	users, activities, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer closeStore()

	accounts := services.NewAccountService(users, activities, cfg.JWTSecret)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger, true))

	// Setup routes
	routes.SetupRoutes(app, accounts, cfg, logger)

	// Start server
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Printf("Server stopped: %v", err)
	}
}

func openStore(cfg *config.Config) (store.UserStore, store.ActivityCounter, func(), error) {
	if cfg.DBDriver == config.DriverPostgres {
		db, err := utils.InitDB(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.Migrate(db); err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return store.NewGormUserStore(db), store.NewGormActivityCounter(db), closeDB, nil
	}

	ctx := context.Background()
	client, db, err := utils.InitMongo(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	users := store.NewMongoUserStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, nil, err
	}
	closeMongo := func() { _ = client.Disconnect(context.Background()) }
	return users, store.NewMongoActivityCounter(db), closeMongo, nil
}
