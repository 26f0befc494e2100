package router

import (
	"github.com/astromitra/astromitra/app/controllers"
	"github.com/astromitra/astromitra/internal/pkg/middleware"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	svc *payments.Service
	cfg payments.Config
}

func NewApiRouter(svc *payments.Service, cfg payments.Config) *ApiRouter {
	return &ApiRouter{svc: svc, cfg: cfg}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// Provider webhooks authenticate via signatures, not API keys, and sit
	// outside the rate-limited /api group: providers retry aggressively and
	// throttling them only delays ledger convergence.
	webhooks := controllers.NewWebhookController(h.svc, h.cfg)
	hooks := app.Group("/webhooks")
	hooks.Post("/stripe", webhooks.HandleStripeWebhook)
	hooks.Post("/square", webhooks.HandleSquareWebhook)

	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public zodiac content.
	v1.Get("/horoscopes/:sign", controllers.HandleGetDailyHoroscope)

	// Authenticated consumer APIs.
	authed := v1.Group("", middleware.APIKeyAuthMiddleware())
	authed.Post("/payments", controllers.HandleCreatePayment)
	authed.Get("/payments", controllers.HandleListPayments)
	authed.Get("/payments/:id", controllers.HandleGetPayment)
	authed.Get("/wallet", controllers.HandleGetWallet)
	authed.Get("/wallet/entries", controllers.HandleListWalletEntries)
}
