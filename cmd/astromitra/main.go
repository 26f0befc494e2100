package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/astromitra/astromitra/app/repository"
	"github.com/astromitra/astromitra/internal/pkg/cache"
	"github.com/astromitra/astromitra/internal/pkg/database"
	"github.com/astromitra/astromitra/internal/pkg/env"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/astromitra/astromitra/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4100")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Webhook credentials are resolved once here; request handlers receive
	// them explicitly and never consult the environment.
	paymentCfg := payments.LoadConfig()
	paymentSvc := payments.NewService(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "AstroMitra",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath := findBasePath(); basePath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, paymentSvc, paymentCfg)

	return app
}

func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/astromitra to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); !os.IsNotExist(err) {
			return path
		}
	}
	return ""
}
