package main

import (
	"context"
	"log"

	"nyassess/internal/config"
	"nyassess/internal/container"
	"nyassess/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown()

	if err := appContainer.StartWatcher(context.Background()); err != nil {
		log.Fatalf("Failed to start directory watcher: %v", err)
	}

	server := ui.NewServer(appContainer.Service, appContainer.Registry)

	log.Printf("Serving assessments from %s", appConfig.Data.Root)
	if err := server.Start(":" + appConfig.Server.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
