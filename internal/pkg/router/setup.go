package router

import (
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers all route groups. Webhook provider configuration is
// resolved once here and handed to the API router explicitly.
func InstallRouter(app *fiber.App, svc *payments.Service, cfg payments.Config) {
	setup(app, NewApiRouter(svc, cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
