package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/mamatcyber90/crypti/src/core/config"
	"github.com/mamatcyber90/crypti/src/core/database"
	"github.com/mamatcyber90/crypti/src/core/router"
	"github.com/mamatcyber90/crypti/src/core/storage"
	"github.com/mamatcyber90/crypti/src/modules/dapps"
	"github.com/mamatcyber90/crypti/src/modules/fetch"
	"github.com/mamatcyber90/crypti/src/modules/tags"
)

func main() {
	// Initialize the Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())   // Recover middleware to handle panics
	app.Use(cors.New())      // CORS middleware for cross-origin requests
	app.Use(requestid.New()) // Middleware to generate unique request IDs

	// Setup environment variables
	config.SetupEnv()

	// Connect to the database and apply the schema
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Error connecting to the database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error migrating the database: %v", err)
	}

	// Build the registry object graph; every dependency is injected, nothing
	// lives in package globals.
	exec := storage.NewExecutor(db)
	index := tags.NewIndex(exec)
	registry := dapps.NewRegistry(exec, index)
	pipeline := fetch.NewPipeline(fetch.NewZipDownloader(), config.DappsDir(), config.DefaultBranch())
	handler := dapps.NewHandler(registry, pipeline)

	// Set up routes
	router.InitialiseAndSetupRoutes(app, handler)

	// Get port from config and start the server
	port := config.Config("APP_PORT")
	if port == "" {
		port = "3000"
	}
	log.Fatal(app.Listen(fmt.Sprintf(":%s", port)))
}
