package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
)

const webhookStorageTimeout = 15 * time.Second

// WebhookController owns the provider webhook endpoints. Verifiers and the
// ingestion service are constructed once at startup from explicit
// configuration; handlers never touch the environment.
type WebhookController struct {
	svc            *payments.Service
	stripeVerifier payments.Verifier
	squareVerifier payments.Verifier
}

// NewWebhookController wires the webhook endpoints for all providers.
func NewWebhookController(svc *payments.Service, cfg payments.Config) *WebhookController {
	return &WebhookController{
		svc: svc,
		stripeVerifier: payments.StripeVerifier{
			Secret:    cfg.Stripe.Secret,
			Tolerance: cfg.Stripe.Tolerance,
		},
		squareVerifier: payments.SquareVerifier{
			Secret:          cfg.Square.Secret,
			NotificationURL: cfg.Square.NotificationURL,
		},
	}
}

// HandleStripeWebhook ingests Stripe event deliveries. Stripe expects 400 on
// signature failure.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	return wc.handle(c, models.PaymentProviderStripe, wc.stripeVerifier, "Stripe-Signature", fiber.StatusBadRequest)
}

// HandleSquareWebhook ingests Square event deliveries. Square expects 401 on
// signature failure.
func (wc *WebhookController) HandleSquareWebhook(c *fiber.Ctx) error {
	return wc.handle(c, models.PaymentProviderSquare, wc.squareVerifier, "x-square-hmacsha256-signature", fiber.StatusUnauthorized)
}

// handle runs the fixed ingestion sequence: raw body, signature verification,
// then the idempotency-gated dispatch. Verification always happens before any
// parsing or storage write; unverified bytes are never trusted.
func (wc *WebhookController) handle(c *fiber.Ctx, provider string, verifier payments.Verifier, sigHeader string, authFailStatus int) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get(sigHeader))

	if err := verifier.Verify(rawBody, signature); err != nil {
		log.Printf("[webhook] %s signature verification failed: %v", provider, err)
		return c.Status(authFailStatus).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookStorageTimeout)
	defer cancel()

	result, err := wc.svc.Ingest(ctx, provider, rawBody)
	if err != nil {
		var dispatchErr *payments.DispatchError
		if errors.As(err, &dispatchErr) {
			log.Printf("[webhook] %s dispatch failed: %v", provider, dispatchErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "dispatch_failed"})
		}
		log.Printf("[webhook] %s ingestion failed: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	switch result.Outcome {
	case payments.IngestDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case payments.IngestIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}
